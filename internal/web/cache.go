package web

import (
	"context"
	"sync"

	"github.com/hpungsan/tabstash/internal/ops"
)

// statusCache holds the last computed status until the store or the
// browser reports a change.
type statusCache struct {
	mu    sync.Mutex
	gen   uint64
	out   *ops.StatusOutput
	valid bool
}

// Get returns the cached status or computes a fresh one. A result computed
// across an invalidation is returned but not kept.
func (c *statusCache) Get(ctx context.Context, compute func(context.Context) (*ops.StatusOutput, error)) (*ops.StatusOutput, error) {
	c.mu.Lock()
	if c.valid {
		out := c.out
		c.mu.Unlock()
		return out, nil
	}
	gen := c.gen
	c.mu.Unlock()

	out, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.out = out
		c.valid = true
	}
	c.mu.Unlock()
	return out, nil
}

// Invalidate drops the cached status.
func (c *statusCache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.out = nil
	c.valid = false
	c.mu.Unlock()
}
