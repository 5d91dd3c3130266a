package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vocab-api/internal/content"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"
)

// Quiz types
const (
	TypeOWS            = content.OWS
	TypeIPH            = content.IPH
	TypeSynonyms       = content.Synonyms
	TypeAntonyms       = content.Antonyms
	TypeTop200OWS      = content.Top200OWS
	TypeTop200IPH      = content.Top200IPH
	TypeTop200Synonyms = content.Top200Synonyms
	TypeTop200Antonyms = content.Top200Antonyms
	TypeWordOfTheDay   = content.WordOfTheDay
	TypeFree           = "freequiz"
	TypePractice       = "practice"
)

const (
	defaultPageSize    = 20
	defaultFreeSize    = 150
	top200Cap          = 200
	top200AntonymLimit = 20
)

var errUnknownQuizType = apperrors.Validation(apperrors.CodeInvalidQuizType, "Unknown quiz type")

var premiumTypes = map[string]bool{
	TypeSynonyms:       true,
	TypeAntonyms:       true,
	TypeTop200OWS:      true,
	TypeTop200IPH:      true,
	TypeTop200Synonyms: true,
	TypeTop200Antonyms: true,
}

// IsPremium reports whether a quiz type needs an active subscription
func IsPremium(quizType string) bool {
	return premiumTypes[quizType]
}

// IsRotating reports whether quizType has a rotating endpoint
func IsRotating(quizType string) bool {
	switch quizType {
	case TypeSynonyms, TypeAntonyms, TypeTop200Synonyms, TypeTop200Antonyms:
		return true
	}
	return false
}

// SessionInfo summarises rotation state for diagnostics
type SessionInfo struct {
	TotalWordsTracked      int `json:"totalWordsTracked"`
	QuestionsUsedInSession int `json:"questionsUsedInSession"`
}

// RotationRequest asks for the next round of a rotating quiz
type RotationRequest struct {
	UserID       uint
	Type         string
	Letter       string
	WordAttempts map[string]int
	Reset        bool
}

// RotationResult is the next round plus the state the client should echo back
type RotationResult struct {
	Questions    []Question     `json:"questions"`
	Total        int            `json:"total"`
	Type         string         `json:"type"`
	WordAttempts map[string]int `json:"wordAttempts"`
	SessionInfo  SessionInfo    `json:"sessionInfo"`
}

// GenerateRequest asks for a non-rotating quiz
type GenerateRequest struct {
	Type     string
	Letter   string
	Page     int
	PageSize int
	Random   bool
}

// GenerateResult is a non-rotating quiz
type GenerateResult struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
	Type      string     `json:"type"`
	Page      int        `json:"page,omitempty"`
	PageSize  int        `json:"pageSize,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// Service builds quizzes from the content library
type Service struct {
	library *content.Library
	engine  *Engine
	store   SessionStore
	now     func() time.Time
}

// NewService creates a quiz service
func NewService(library *content.Library, engine *Engine, store SessionStore) *Service {
	return &Service{library: library, engine: engine, store: store, now: time.Now}
}

// statsReporter is implemented by stores that can describe themselves
type statsReporter interface {
	GetStats() map[string]interface{}
}

// SessionStats returns session store statistics, or nil when the store keeps none
func (s *Service) SessionStats() map[string]interface{} {
	if reporter, ok := s.store.(statsReporter); ok {
		return reporter.GetStats()
	}
	return nil
}

// Rotating serves the next round for one user and quiz type
func (s *Service) Rotating(ctx context.Context, req RotationRequest) (*RotationResult, error) {
	spec, err := s.rotationSpec(req.Type, req.Letter)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%d_%s", req.UserID, req.Type)
	clientAttempts := req.WordAttempts
	if req.Reset {
		if err := s.store.Delete(ctx, key); err != nil {
			logging.Warnf("Failed to reset quiz session %s: %v", key, err)
		}
		clientAttempts = nil
	}

	session := s.loadSession(ctx, key)
	session.Merge(clientAttempts)

	questions := s.engine.NextQuestionSet(spec, session)

	if err := s.store.Save(ctx, key, session); err != nil {
		logging.Warnf("Failed to save quiz session %s: %v", key, err)
	}

	attempts := make(map[string]int, len(session.WordAttempts))
	for k, v := range session.WordAttempts {
		attempts[k] = v
	}
	return &RotationResult{
		Questions:    questions,
		Total:        len(questions),
		Type:         req.Type,
		WordAttempts: attempts,
		SessionInfo: SessionInfo{
			TotalWordsTracked:      len(session.WordAttempts),
			QuestionsUsedInSession: len(session.UsedQuestions),
		},
	}, nil
}

// loadSession falls back to a fresh session when the store misses or fails;
// client-held attempts still carry rotation position in that case
func (s *Service) loadSession(ctx context.Context, key string) *Session {
	session, err := s.store.Load(ctx, key)
	if err == nil {
		return session
	}
	if !errors.Is(err, ErrSessionNotFound) {
		logging.Warnf("Failed to load quiz session %s: %v", key, err)
	}
	return NewSession(s.now())
}

func (s *Service) rotationSpec(quizType, letter string) (RotationSpec, error) {
	switch quizType {
	case TypeSynonyms:
		ds := s.library.Dataset(content.Synonyms)
		return RotationSpec{
			Pool:     ds.Letter(letterOrDefault(letter)),
			Universe: ds.All(),
			Answers:  content.Entry.SynonymSet,
			Prompt:   synonymPrompt,
		}, nil
	case TypeAntonyms:
		ds := s.library.Dataset(content.Antonyms)
		return RotationSpec{
			Pool:     ds.Letter(letterOrDefault(letter)),
			Universe: ds.All(),
			Answers:  content.Entry.AntonymSet,
			Prompt:   antonymPrompt,
		}, nil
	case TypeTop200Synonyms:
		all := s.library.Dataset(content.Top200Synonyms).All()
		return RotationSpec{
			Pool:     all,
			Universe: all,
			Answers:  content.Entry.SynonymSet,
			Prompt:   synonymPrompt,
		}, nil
	case TypeTop200Antonyms:
		all := s.library.Dataset(content.Top200Antonyms).All()
		return RotationSpec{
			Pool:     all,
			Universe: all,
			Answers:  content.Entry.AntonymSet,
			Prompt:   antonymPrompt,
			Limit:    top200AntonymLimit,
		}, nil
	}
	return RotationSpec{}, errUnknownQuizType
}

// Generate builds a non-rotating quiz. Subscription gating is the caller's job.
func (s *Service) Generate(req GenerateRequest) (*GenerateResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize

	if req.Type == TypePractice {
		return &GenerateResult{
			Questions: []Question{},
			Type:      req.Type,
			Page:      page,
			PageSize:  pageSize,
			Message:   "Practice quiz is built from the practice queue",
		}, nil
	}

	var spec PlainSpec
	switch req.Type {
	case TypeWordOfTheDay:
		spec = plainSpec(s.library.Dataset(content.WordOfTheDay).All(), wordAnswer, definitionPrompt)
		spec.Limit = sizeOrDefault(pageSize, defaultPageSize)
	case TypeOWS:
		spec = plainSpec(s.letterPool(content.OWS, req), wordAnswer, definitionPrompt)
		spec.Limit = sizeOrDefault(pageSize, defaultPageSize)
	case TypeIPH:
		spec = plainSpec(s.letterPool(content.IPH, req), phraseAnswer, meaningPrompt)
		spec.Limit = sizeOrDefault(pageSize, defaultPageSize)
	case TypeSynonyms:
		spec = plainSpec(s.letterPool(content.Synonyms, req), firstSynonym, synonymPrompt)
	case TypeAntonyms:
		spec = plainSpec(s.letterPool(content.Antonyms, req), firstAntonym, antonymPrompt)
	case TypeTop200OWS:
		spec = plainSpec(s.library.Dataset(content.Top200OWS).All(), wordAnswer, definitionPrompt)
		spec.Limit = top200Cap
	case TypeTop200IPH:
		spec = plainSpec(s.library.Dataset(content.Top200IPH).All(), phraseAnswer, meaningPrompt)
		spec.Limit = top200Cap
	case TypeTop200Synonyms:
		spec = plainSpec(s.library.Dataset(content.Top200Synonyms).All(), firstSynonym, synonymPrompt)
		spec.Limit = top200Cap
	case TypeTop200Antonyms:
		spec = plainSpec(s.library.Dataset(content.Top200Antonyms).All(), firstAntonym, antonymPrompt)
		spec.Limit = top200Cap
	case TypeFree:
		spec = plainSpec(s.library.Dataset(content.Top200OWS).All(), wordAnswer, definitionPrompt)
		spec.Limit = sizeOrDefault(pageSize, defaultFreeSize)
	default:
		return nil, errUnknownQuizType
	}

	return &GenerateResult{
		Questions: s.engine.PlainQuestionSet(spec),
		Total:     len(spec.Pool),
		Type:      req.Type,
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

// Free serves every top-200 one-word-substitution item as a quiz
func (s *Service) Free() *GenerateResult {
	spec := plainSpec(s.library.Dataset(content.Top200OWS).All(), wordAnswer, definitionPrompt)
	questions := s.engine.PlainQuestionSet(spec)
	return &GenerateResult{Questions: questions, Total: len(questions), Type: TypeFree}
}

func (s *Service) letterPool(dataset string, req GenerateRequest) []content.Entry {
	ds := s.library.Dataset(dataset)
	if req.Random {
		return ds.All()
	}
	return ds.Letter(letterOrDefault(req.Letter))
}

func plainSpec(pool []content.Entry, answer, prompt func(content.Entry) string) PlainSpec {
	return PlainSpec{Pool: pool, Universe: pool, Answer: answer, Prompt: prompt}
}

func letterOrDefault(letter string) string {
	letter = strings.TrimSpace(letter)
	if letter == "" {
		return "A"
	}
	return strings.ToUpper(letter)
}

func sizeOrDefault(size, def int) int {
	if size <= 0 {
		return def
	}
	return size
}

func synonymPrompt(e content.Entry) string {
	return fmt.Sprintf("What is a synonym for \"%s\"? (%s)", e.Word, e.Definition)
}

func antonymPrompt(e content.Entry) string {
	return fmt.Sprintf("What is an antonym for \"%s\"? (%s)", e.Word, e.Definition)
}

func definitionPrompt(e content.Entry) string { return e.Definition }
func meaningPrompt(e content.Entry) string    { return e.Meaning }
func wordAnswer(e content.Entry) string       { return e.Word }
func phraseAnswer(e content.Entry) string     { return e.Phrase }
func firstSynonym(e content.Entry) string     { return e.SynonymSet()[0] }
func firstAntonym(e content.Entry) string     { return e.AntonymSet()[0] }
