package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/studyon/coursehub/internal/core/domain"
)

type memStore struct {
	sessions map[string]*domain.Principal
	loadErr  error
	saved    int
	deleted  []string
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*domain.Principal)}
}

func (s *memStore) Save(_ context.Context, id string, p *domain.Principal, _ time.Duration) error {
	s.saved++
	s.sessions[id] = p
	return nil
}

func (s *memStore) Load(_ context.Context, id string) (*domain.Principal, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	p, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.sessions, id)
	return nil
}

type stubRefresher struct {
	fn func(ctx context.Context, p *domain.Principal, now time.Time) (*domain.Principal, bool, error)
}

func (r *stubRefresher) EnsureFresh(ctx context.Context, p *domain.Principal, now time.Time) (*domain.Principal, bool, error) {
	return r.fn(ctx, p, now)
}

func passThrough() *stubRefresher {
	return &stubRefresher{fn: func(_ context.Context, p *domain.Principal, _ time.Time) (*domain.Principal, bool, error) {
		return p, false, nil
	}}
}

func newSessionContext(cookie string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "SID", Value: cookie})
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func clearedCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "SID" && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestSessions_Anonymous(t *testing.T) {
	sessions := NewSessions(newMemStore(), passThrough(), SessionConfig{CookieName: "SID"}, zerolog.Nop())
	c, _ := newSessionContext("")

	err := sessions.Middleware()(func(c echo.Context) error {
		if Principal(c) != nil {
			t.Fatalf("expected anonymous request")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSessions_LoadsPrincipal(t *testing.T) {
	store := newMemStore()
	store.sessions["s1"] = &domain.Principal{Email: "u@example.com", Token: "t"}
	sessions := NewSessions(store, passThrough(), SessionConfig{CookieName: "SID"}, zerolog.Nop())
	c, _ := newSessionContext("s1")

	called := false
	err := sessions.Middleware()(func(c echo.Context) error {
		called = true
		if p := Principal(c); p == nil || p.Email != "u@example.com" {
			t.Fatalf("unexpected principal %+v", p)
		}
		return nil
	})(c)
	if err != nil || !called {
		t.Fatalf("expected next to run, err=%v", err)
	}
	if store.saved != 0 {
		t.Fatalf("unrefreshed session must not be rewritten")
	}
}

func TestSessions_UnknownCookieCleared(t *testing.T) {
	sessions := NewSessions(newMemStore(), passThrough(), SessionConfig{CookieName: "SID"}, zerolog.Nop())
	c, rec := newSessionContext("ghost")

	_ = sessions.Middleware()(func(c echo.Context) error {
		if Principal(c) != nil {
			t.Fatalf("expected anonymous request")
		}
		return nil
	})(c)
	if !clearedCookie(rec) {
		t.Fatalf("expected stale cookie to be cleared")
	}
}

func TestSessions_RefreshSaved(t *testing.T) {
	store := newMemStore()
	store.sessions["s1"] = &domain.Principal{Email: "u@example.com", Token: "old", RefreshToken: "r"}
	refresher := &stubRefresher{fn: func(_ context.Context, p *domain.Principal, _ time.Time) (*domain.Principal, bool, error) {
		fresh := *p
		fresh.Token = "new"
		return &fresh, true, nil
	}}
	sessions := NewSessions(store, refresher, SessionConfig{CookieName: "SID"}, zerolog.Nop())
	c, _ := newSessionContext("s1")

	_ = sessions.Middleware()(func(c echo.Context) error {
		if Principal(c).Token != "new" {
			t.Fatalf("handler must see the refreshed principal")
		}
		return nil
	})(c)
	if store.sessions["s1"].Token != "new" {
		t.Fatalf("refreshed principal must be stored")
	}
}

func TestSessions_FailedRefreshForcesAnonymous(t *testing.T) {
	store := newMemStore()
	store.sessions["s1"] = &domain.Principal{Email: "u@example.com", Token: "old"}
	refresher := &stubRefresher{fn: func(context.Context, *domain.Principal, time.Time) (*domain.Principal, bool, error) {
		return nil, false, domain.ErrSessionExpired
	}}
	sessions := NewSessions(store, refresher, SessionConfig{CookieName: "SID"}, zerolog.Nop())
	c, rec := newSessionContext("s1")

	_ = sessions.Middleware()(func(c echo.Context) error {
		if Principal(c) != nil {
			t.Fatalf("expired session must continue anonymously")
		}
		return nil
	})(c)
	if _, ok := store.sessions["s1"]; ok {
		t.Fatalf("expired session must be deleted")
	}
	if !clearedCookie(rec) {
		t.Fatalf("expected cookie to be cleared")
	}
}

func TestSessions_HandlerSessionExpired(t *testing.T) {
	store := newMemStore()
	store.sessions["s1"] = &domain.Principal{Email: "u@example.com", Token: "t"}
	sessions := NewSessions(store, passThrough(), SessionConfig{CookieName: "SID"}, zerolog.Nop())
	c, _ := newSessionContext("s1")

	err := sessions.Middleware()(func(echo.Context) error {
		return &domain.BillingError{Kind: domain.ErrSessionExpired, Status: 401}
	})(c)
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "s1" {
		t.Fatalf("expected session discard, got %v", store.deleted)
	}
}

func TestSessions_StoreDown(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("connection refused")
	sessions := NewSessions(store, passThrough(), SessionConfig{CookieName: "SID"}, zerolog.Nop())
	c, _ := newSessionContext("s1")

	called := false
	_ = sessions.Middleware()(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if !called {
		t.Fatalf("store failure must not block the request")
	}
}

func TestSessions_StartAndEnd(t *testing.T) {
	store := newMemStore()
	store.sessions["old"] = &domain.Principal{Email: "x@example.com", Token: "t"}
	sessions := NewSessions(store, passThrough(), SessionConfig{CookieName: "SID", TTL: time.Hour, Secure: true}, zerolog.Nop())
	c, rec := newSessionContext("old")

	p := &domain.Principal{Email: "u@example.com", Token: "t"}
	if err := sessions.Start(c, p); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := store.sessions["old"]; ok {
		t.Fatalf("previous session must be replaced")
	}

	var id string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "SID" {
			id = ck.Value
			if !ck.HttpOnly || !ck.Secure || ck.MaxAge != 3600 {
				t.Fatalf("unexpected cookie attributes %+v", ck)
			}
		}
	}
	if store.sessions[id] != p {
		t.Fatalf("expected principal stored under the cookie id")
	}
	if Principal(c) != p {
		t.Fatalf("expected principal on context")
	}

	c2, rec2 := newSessionContext(id)
	if err := sessions.End(c2); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, ok := store.sessions[id]; ok {
		t.Fatalf("session must be deleted on logout")
	}
	if !clearedCookie(rec2) {
		t.Fatalf("expected cookie cleared on logout")
	}
}
