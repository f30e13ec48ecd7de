package orchestrator

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

// Cached reuses successful collector results per host for a TTL. Failures are
// never cached, so a transient outage does not outlive its scan.
type Cached[T any] struct {
	next  ports.Collector[T]
	cache *expirable.LRU[string, T]
}

func NewCached[T any](next ports.Collector[T], size int, ttl time.Duration) *Cached[T] {
	if size <= 0 {
		size = 128
	}
	return &Cached[T]{
		next:  next,
		cache: expirable.NewLRU[string, T](size, nil, ttl),
	}
}

func (c *Cached[T]) Collect(ctx context.Context, target domain.Target) (T, error) {
	if c.next == nil {
		var zero T
		return zero, domain.ErrCollectorDisabled
	}
	if v, ok := c.cache.Get(target.Host); ok {
		return v, nil
	}
	v, err := c.next.Collect(ctx, target)
	if err != nil {
		return v, err
	}
	c.cache.Add(target.Host, v)
	return v, nil
}

// Len reports the number of live entries.
func (c *Cached[T]) Len() int { return c.cache.Len() }
