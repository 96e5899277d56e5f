package services

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// SessionKeyPrefix is the Redis key prefix for sessions
const SessionKeyPrefix = "session:"

// SessionStore resolves bearer tokens minted by the identity service to
// their subject.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// ValidateSession returns the subject for token. An unknown or expired
// token is (false, nil).
func (s *SessionStore) ValidateSession(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	subject, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if subject == "" {
		return "", false, nil
	}
	return subject, true, nil
}
