package quiz

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by stores for unknown keys
var ErrSessionNotFound = errors.New("quiz session not found")

// maxTrackedWords bounds how many client-echoed attempt entries are accepted
const maxTrackedWords = 5000

// Session is the rotation state for one user and quiz category.
// WordAttempts maps an item to the alternative it will be asked with next
// (1, 2 or 3). UsedQuestions holds "item_attempt" keys served this cycle.
type Session struct {
	WordAttempts  map[string]int  `json:"wordAttempts"`
	UsedQuestions map[string]bool `json:"usedQuestions"`
	StartedAt     time.Time       `json:"startedAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// NewSession creates an empty session
func NewSession(now time.Time) *Session {
	return &Session{
		WordAttempts:  make(map[string]int),
		UsedQuestions: make(map[string]bool),
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Attempt returns the attempt index to use next for an item
func (s *Session) Attempt(key string) int {
	if a, ok := s.WordAttempts[key]; ok && a >= 1 && a <= 3 {
		return a
	}
	return 1
}

// Merge copies client-held attempt counters over the session's; the client
// copy wins. Out-of-range values are ignored.
func (s *Session) Merge(clientAttempts map[string]int) {
	for key, attempt := range clientAttempts {
		if key == "" || attempt < 1 || attempt > 3 {
			continue
		}
		if _, tracked := s.WordAttempts[key]; !tracked && len(s.WordAttempts) >= maxTrackedWords {
			continue
		}
		s.WordAttempts[key] = attempt
	}
}

// Clone returns a deep copy
func (s *Session) Clone() *Session {
	c := &Session{
		WordAttempts:  make(map[string]int, len(s.WordAttempts)),
		UsedQuestions: make(map[string]bool, len(s.UsedQuestions)),
		StartedAt:     s.StartedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	for k, v := range s.WordAttempts {
		c.WordAttempts[k] = v
	}
	for k, v := range s.UsedQuestions {
		c.UsedQuestions[k] = v
	}
	return c
}

// SessionStore keeps sessions between requests. Sessions are a cache: the
// client echoes wordAttempts on every request and stays the durable copy.
type SessionStore interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, session *Session) error
	Delete(ctx context.Context, key string) error
}
