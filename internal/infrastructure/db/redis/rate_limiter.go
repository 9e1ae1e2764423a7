package redis

import (
	"context"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	rateKeyPrefix   = "ratelimit:"
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

// RateResult is the verdict for one request.
type RateResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// RateLimiter is a GCRA limiter shared through Redis. When Redis cannot be
// reached it falls back to an in-process token bucket per key, so limiting
// degrades to per-instance instead of failing.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	limit    redis_rate.Limit
	log      zerolog.Logger
}

// NewRateLimiter allows perMinute requests per key with the given burst.
func NewRateLimiter(client *redis.Client, perMinute, burst int, log zerolog.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(client),
		fallback: newLocalLimiter(),
		limit:    redis_rate.Limit{Rate: perMinute, Burst: burst, Period: time.Minute},
		log:      log,
	}
}

// Allow consumes one token for key.
func (l *RateLimiter) Allow(ctx context.Context, key string) RateResult {
	key = rateKeyPrefix + key
	res, err := l.limiter.Allow(ctx, key, l.limit)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("rate limiter falling back to local buckets")
		return l.fallback.allow(key, l.limit)
	}
	return RateResult{
		Allowed:    res.Allowed > 0,
		Limit:      l.limit.Rate,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
		ResetAfter: res.ResetAfter,
	}
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{entries: make(map[string]*limiterEntry), lastSweep: time.Now()}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) RateResult {
	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > cleanupInterval {
		for k, e := range l.entries {
			if now.Sub(e.lastAccess) > entryTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst)}
		l.entries[key] = entry
	}
	entry.lastAccess = now

	allowed := entry.limiter.AllowN(now, 1)
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	interval := time.Duration(float64(time.Second) / perSecond)

	res := RateResult{
		Allowed:    allowed,
		Limit:      limit.Rate,
		Remaining:  remaining,
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if !allowed {
		res.RetryAfter = interval
	}
	return res
}
