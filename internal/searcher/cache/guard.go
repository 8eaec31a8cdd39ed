package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/resilience"
	pkgredis "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/redis"
)

// NewBreaker returns the breaker Guard expects. A Redis nil reply is a
// cache miss and does not count as a failure.
func NewBreaker(failures int, cooldown time.Duration) *resilience.Breaker {
	return resilience.NewBreaker("redis-cache", resilience.BreakerConfig{
		FailureThreshold: failures,
		Cooldown:         cooldown,
		Ignore:           pkgredis.IsNilError,
	})
}

type guardedBackend struct {
	backend Backend
	breaker *resilience.Breaker
}

// Guard routes every call to backend through breaker. While the breaker is
// open calls fail at once with resilience.ErrCircuitOpen, so an unreachable
// Redis costs searches nothing but their cache.
func Guard(backend Backend, breaker *resilience.Breaker) Backend {
	return &guardedBackend{backend: backend, breaker: breaker}
}

func (g *guardedBackend) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := g.breaker.Do(func() error {
		var err error
		value, err = g.backend.Get(ctx, key)
		return err
	})
	return value, err
}

func (g *guardedBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return g.breaker.Do(func() error {
		return g.backend.Set(ctx, key, value, ttl)
	})
}

func (g *guardedBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := g.breaker.Do(func() error {
		var err error
		n, err = g.backend.FlushByPattern(ctx, pattern)
		return err
	})
	return n, err
}
