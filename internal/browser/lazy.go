package browser

import (
	"context"
	"io"
	"sync"
)

// Factory opens a browser.
type Factory func(ctx context.Context) (Browser, error)

// Lazy opens its browser on first use and reuses it afterwards.
// A failed open is not remembered; the next Get tries again.
type Lazy struct {
	factory Factory

	mu sync.Mutex
	b  Browser
}

// NewLazy creates a Lazy around factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Fixed returns a Lazy that always yields b.
func Fixed(b Browser) *Lazy {
	return &Lazy{b: b}
}

// Get returns the browser, opening it if needed. The connection outlives
// ctx, so only ctx's values reach the factory.
func (l *Lazy) Get(ctx context.Context) (Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.b != nil {
		return l.b, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := l.factory(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	l.b = b
	return b, nil
}

// Opened returns the browser if it has been opened, or nil.
func (l *Lazy) Opened() Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b
}

// Close closes an opened browser that supports closing.
func (l *Lazy) Close() error {
	l.mu.Lock()
	b := l.b
	l.b = nil
	l.mu.Unlock()
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
