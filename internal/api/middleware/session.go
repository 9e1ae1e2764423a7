package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
)

const principalKey = "principal"

// Refresher renews a principal whose bearer token has expired.
type Refresher interface {
	EnsureFresh(ctx context.Context, p *domain.Principal, now time.Time) (*domain.Principal, bool, error)
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions binds a cookie-held session id to a principal in the store and
// runs refresh-on-demand before every handler.
type Sessions struct {
	store     ports.SessionStore
	refresher Refresher
	cfg       SessionConfig
	log       zerolog.Logger
	now       func() time.Time
}

func NewSessions(store ports.SessionStore, refresher Refresher, cfg SessionConfig, log zerolog.Logger) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "STUDYON_SESSION"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Sessions{store: store, refresher: refresher, cfg: cfg, log: log, now: time.Now}
}

// Principal returns the principal resolved for this request, or nil for
// anonymous requests.
func Principal(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}

// Middleware resolves the session principal. A session that can no longer
// be refreshed is discarded and the request continues anonymously. When a
// handler reports an expired session the session is discarded as well.
func (s *Sessions) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(s.cfg.CookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			id := cookie.Value

			p, err := s.store.Load(ctx, id)
			switch {
			case errors.Is(err, domain.ErrUnauthenticated):
				s.clearCookie(c)
				return next(c)
			case err != nil:
				s.log.Warn().Err(err).Msg("session store unavailable")
				return next(c)
			}

			fresh, refreshed, err := s.refresher.EnsureFresh(ctx, p, s.now())
			if err != nil {
				s.log.Info().Err(err).Str("email", p.Email).Msg("session expired")
				s.discard(c, id)
				return next(c)
			}
			if refreshed {
				if err := s.store.Save(ctx, id, fresh, s.cfg.TTL); err != nil {
					s.log.Warn().Err(err).Msg("refreshed session not saved")
				}
			}
			c.Set(principalKey, fresh)

			err = next(c)
			if errors.Is(err, domain.ErrSessionExpired) {
				s.discard(c, id)
			}
			return err
		}
	}
}

// Start opens a new session for p and sets the cookie. An existing session
// cookie is replaced.
func (s *Sessions) Start(c echo.Context, p *domain.Principal) error {
	if old, err := c.Cookie(s.cfg.CookieName); err == nil && old.Value != "" {
		_ = s.store.Delete(c.Request().Context(), old.Value)
	}

	id := uuid.NewString()
	if err := s.store.Save(c.Request().Context(), id, p, s.cfg.TTL); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(principalKey, p)
	return nil
}

// End discards the current session locally. Billing is not contacted.
func (s *Sessions) End(c echo.Context) error {
	cookie, err := c.Cookie(s.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		s.clearCookie(c)
		return nil
	}
	if err := s.store.Delete(c.Request().Context(), cookie.Value); err != nil {
		return err
	}
	s.clearCookie(c)
	c.Set(principalKey, nil)
	return nil
}

func (s *Sessions) discard(c echo.Context, id string) {
	if err := s.store.Delete(c.Request().Context(), id); err != nil {
		s.log.Warn().Err(err).Msg("session not deleted")
	}
	s.clearCookie(c)
	c.Set(principalKey, nil)
}

func (s *Sessions) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
