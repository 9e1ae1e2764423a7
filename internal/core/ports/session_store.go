package ports

import (
	"context"
	"time"

	"github.com/studyon/coursehub/internal/core/domain"
)

// SessionStore keeps the principal of each session, keyed by an opaque
// session id. Load returns domain.ErrUnauthenticated for unknown ids.
type SessionStore interface {
	Save(ctx context.Context, id string, p *domain.Principal, ttl time.Duration) error
	Load(ctx context.Context, id string) (*domain.Principal, error)
	Delete(ctx context.Context, id string) error
}
