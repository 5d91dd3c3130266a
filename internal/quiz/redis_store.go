package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares quiz sessions across instances with a sliding TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store on an existing client
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(key string) string {
	return fmt.Sprintf("quiz_session:%s", key)
}

// Load reads and decodes a session
func (r *RedisStore) Load(ctx context.Context, key string) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode quiz session: %w", err)
	}
	if session.WordAttempts == nil {
		session.WordAttempts = make(map[string]int)
	}
	if session.UsedQuestions == nil {
		session.UsedQuestions = make(map[string]bool)
	}
	return &session, nil
}

// Save encodes the session and refreshes its TTL
func (r *RedisStore) Save(ctx context.Context, key string, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode quiz session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save quiz session: %w", err)
	}
	return nil
}

// Delete removes a session
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("delete quiz session: %w", err)
	}
	return nil
}
