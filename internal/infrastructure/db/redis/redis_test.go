package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/studyon/coursehub/internal/core/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), Config{Addr: mr.Addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond}); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestClientOptions(t *testing.T) {
	t.Run("address with defaults", func(t *testing.T) {
		opts, err := clientOptions(Config{Addr: "cache:6379", DB: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "cache:6379" || opts.DB != 2 {
			t.Fatalf("unexpected target %s/%d", opts.Addr, opts.DB)
		}
		if opts.DialTimeout != defaultTimeout || opts.ReadTimeout != defaultTimeout {
			t.Fatalf("expected default timeouts, got %s/%s", opts.DialTimeout, opts.ReadTimeout)
		}
		if opts.ClientName != "" {
			t.Fatalf("expected no client name, got %q", opts.ClientName)
		}
	})

	t.Run("url wins over address", func(t *testing.T) {
		opts, err := clientOptions(Config{
			URL:        "redis://:secret@sessions:6380/4",
			Addr:       "ignored:6379",
			PoolSize:   7,
			ClientName: "coursehub",
			Timeout:    time.Second,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "sessions:6380" || opts.DB != 4 || opts.Password != "secret" {
			t.Fatalf("url not applied: %s db=%d", opts.Addr, opts.DB)
		}
		if opts.PoolSize != 7 || opts.WriteTimeout != time.Second || opts.ClientName != "coursehub" {
			t.Fatalf("unexpected pool %d timeout %s name %q", opts.PoolSize, opts.WriteTimeout, opts.ClientName)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if _, err := clientOptions(Config{URL: "http://nope"}); err == nil {
			t.Fatalf("expected an error for a non-redis scheme")
		}
	})
}

func TestPinger(t *testing.T) {
	mr, client := newTestClient(t)
	ping := Pinger(client, 200*time.Millisecond)

	if err := ping(context.Background()); err != nil {
		t.Fatalf("expected healthy redis, got %v", err)
	}
	mr.Close()
	if err := ping(context.Background()); err == nil {
		t.Fatalf("expected ping failure once redis is gone")
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	p := &domain.Principal{
		Email:        "u@example.com",
		Roles:        []string{domain.RoleSuperAdmin},
		Token:        "h.p.s",
		RefreshToken: "r1",
	}
	if err := store.Save(ctx, "abc", p, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("session:abc") {
		t.Fatalf("expected key session:abc")
	}
	if ttl := mr.TTL("session:abc"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}

	got, err := store.Load(ctx, "abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Email != p.Email || got.Token != p.Token || got.RefreshToken != "r1" {
		t.Fatalf("unexpected principal %+v", got)
	}
	if !got.HasRole(domain.RoleUser) || !got.IsSuperAdmin() {
		t.Fatalf("unexpected roles %v", got.Roles)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "abc"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after delete, got %v", err)
	}
	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete must be idempotent: %v", err)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", &domain.Principal{Email: "u@example.com", Token: "t"}, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestSessionStore_CorruptValue(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client)

	if err := mr.Set("session:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Load(context.Background(), "bad"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if mr.Exists("session:bad") {
		t.Fatalf("corrupt session must be removed")
	}
}

func TestSessionStore_EmptyID(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client)

	if _, err := store.Load(context.Background(), ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if err := store.Save(context.Background(), "", &domain.Principal{Token: "t"}, time.Minute); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestRateLimiter_Redis(t *testing.T) {
	_, client := newTestClient(t)
	limiter := NewRateLimiter(client, 2, 2, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if res := limiter.Allow(ctx, "login:1.2.3.4"); !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	res := limiter.Allow(ctx, "login:1.2.3.4")
	if res.Allowed {
		t.Fatalf("third request should be limited")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %s", res.RetryAfter)
	}
	if other := limiter.Allow(ctx, "login:5.6.7.8"); !other.Allowed {
		t.Fatalf("keys must be limited independently")
	}
}

func TestRateLimiter_FallsBackWhenRedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := NewRateLimiter(client, 1, 1, zerolog.Nop())
	mr.Close()

	ctx := context.Background()
	if res := limiter.Allow(ctx, "k"); !res.Allowed {
		t.Fatalf("first request should pass through the local bucket")
	}
	if res := limiter.Allow(ctx, "k"); res.Allowed {
		t.Fatalf("second request should be limited by the local bucket")
	}
}
