package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
)

const sessionPrefix = "session:"

// SessionStore keeps one JSON-encoded principal per session id.
// Key format: session:<id>
type SessionStore struct {
	client *redis.Client
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save stores p under id, replacing any previous value. A non-positive ttl
// keeps the key until it is deleted.
func (s *SessionStore) Save(ctx context.Context, id string, p *domain.Principal, ttl time.Duration) error {
	if id == "" || p == nil {
		return fmt.Errorf("save session: %w", domain.ErrUnauthenticated)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(id), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns domain.ErrUnauthenticated for unknown or unreadable sessions.
func (s *SessionStore) Load(ctx context.Context, id string) (*domain.Principal, error) {
	if id == "" {
		return nil, domain.ErrUnauthenticated
	}
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var p domain.Principal
	if err := json.Unmarshal(raw, &p); err != nil || p.Token == "" {
		_ = s.client.Del(ctx, s.key(id)).Err()
		return nil, domain.ErrUnauthenticated
	}
	p.Roles = domain.NormalizeRoles(p.Roles)
	return &p, nil
}

// Delete is idempotent.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(id string) string {
	return sessionPrefix + id
}
