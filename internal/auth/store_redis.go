package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = 12 * time.Hour

// RedisCredentialStore is a Redis/Dragonfly-backed CredentialStore. Durable
// keys are stored without expiry; session keys expire after sessionTTL so an
// abandoned admin session does not outlive the day.
type RedisCredentialStore struct {
	client     *redis.Client
	terminalID string
}

// NewRedisCredentialStore creates a credential store namespaced by terminal id.
func NewRedisCredentialStore(client *redis.Client, terminalID string) *RedisCredentialStore {
	return &RedisCredentialStore{client: client, terminalID: terminalID}
}

func (s *RedisCredentialStore) durableKey(key string) string {
	return fmt.Sprintf("terminal:%s:credential:%s", s.terminalID, key)
}

func (s *RedisCredentialStore) sessionKey(key string) string {
	return fmt.Sprintf("terminal:%s:session:%s", s.terminalID, key)
}

func (s *RedisCredentialStore) get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisCredentialStore) GetDurable(ctx context.Context, key string) (string, bool, error) {
	return s.get(ctx, s.durableKey(key))
}

func (s *RedisCredentialStore) SetDurable(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.durableKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisCredentialStore) GetSession(ctx context.Context, key string) (string, bool, error) {
	return s.get(ctx, s.sessionKey(key))
}

func (s *RedisCredentialStore) SetSession(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.sessionKey(key), value, sessionTTL).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", key, err)
	}
	return nil
}

func (s *RedisCredentialStore) DeleteSession(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}
