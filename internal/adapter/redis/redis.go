// Package redis stores sessions in Redis and lets key expiry retire them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photoshare/internal/domain"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "photoshare:session:"

// SessionRepo implements domain.SessionRepository on a Redis client.
type SessionRepo struct {
	client *redis.Client
}

// Open connects to the Redis server at addr and pings it.
func Open(ctx context.Context, addr, password string, db int) (*SessionRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &SessionRepo{client: client}, nil
}

// NewSessionRepo wraps an existing client.
func NewSessionRepo(client *redis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

// Close closes the client.
func (r *SessionRepo) Close() error {
	return r.client.Close()
}

type record struct {
	User      domain.SessionUser `json:"user"`
	ExpiresAt time.Time          `json:"expires_at"`
	CreatedAt time.Time          `json:"created_at"`
}

func key(token string) string { return keyPrefix + token }

// Create stores the session with a TTL matching its lifetime.
func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	ttl := s.ExpiresAt.Sub(s.CreatedAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(record{User: s.User, ExpiresAt: s.ExpiresAt.UTC(), CreatedAt: s.CreatedAt.UTC()})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(s.Token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// GetByToken returns nil, nil for unknown or expired tokens.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &domain.Session{
		Token:     token,
		User:      rec.User,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Delete removes the session. Deleting an unknown token is not an error.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; Redis evicts expired keys itself.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
