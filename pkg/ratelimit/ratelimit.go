package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	extratelimit "github.com/vnmchuo/ratelimiter"
)

// DefaultInterval keeps callers under the provider's 10 requests/second quota.
const DefaultInterval = 100 * time.Millisecond

// Limiter spaces quota-consuming calls at least Interval apart. When a shared
// quota store is attached, every release also takes one token from it.
type Limiter struct {
	interval time.Duration
	quota    extratelimit.Limiter
	quotaKey string

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

type Option func(*Limiter)

// WithQuota attaches a shared store, typically NewRedisQuota, keyed by account.
func WithQuota(store extratelimit.Limiter, account string) Option {
	return func(l *Limiter) {
		l.quota = store
		l.quotaKey = fmt.Sprintf("ratelimit:account:%s", account)
	}
}

func NewLimiter(interval time.Duration, opts ...Option) *Limiter {
	if interval < 0 {
		interval = 0
	}
	l := &Limiter{
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewRedisQuota is a store allowing perSecond tokens per one-second window,
// shared by every process pointed at the same Redis.
func NewRedisQuota(rdb *redis.Client, perSecond int) extratelimit.Limiter {
	return extratelimit.NewRedisStore(rdb,
		extratelimit.WithLimit(perSecond),
		extratelimit.WithWindow(time.Second),
	)
}

func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until Interval has passed since the previous release. The first
// call returns immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if d := l.interval - l.now().Sub(l.last); d > 0 {
			if err := sleep(ctx, d); err != nil {
				return err
			}
		}
	}

	if l.quota != nil {
		if err := l.takeQuota(ctx); err != nil {
			return err
		}
	}

	l.last = l.now()
	return nil
}

func (l *Limiter) takeQuota(ctx context.Context) error {
	backoff := l.interval
	if backoff <= 0 {
		backoff = DefaultInterval
	}

	for {
		res, err := l.quota.Allow(ctx, l.quotaKey)
		if err != nil {
			return fmt.Errorf("shared quota check failed: %w", err)
		}
		if res.Allowed {
			return nil
		}
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
