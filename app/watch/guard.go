package watch

import (
	"context"
	"log/slog"
	"sync"
)

// Guard is the single authority on host-context validity. The host execution
// context can be revoked out of band while the page keeps running; every
// externally-facing operation consults the guard first instead of
// re-implementing the check. The first detected invalidation runs the
// registered teardown exactly once.
type Guard struct {
	probe    func(ctx context.Context) error
	mu       sync.Mutex
	invalid  bool
	teardown func()
}

// NewGuard creates a guard around a reachability probe. A probe that returns
// an error, or panics, is itself evidence of invalidation.
func NewGuard(probe func(ctx context.Context) error) *Guard {
	return &Guard{probe: probe}
}

// SetTeardown registers the cleanup to run on first invalidation.
func (g *Guard) SetTeardown(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.teardown = fn
}

// Valid reports whether the host context is still reachable. Detecting
// invalidation triggers teardown as a side effect.
func (g *Guard) Valid(ctx context.Context) bool {
	g.mu.Lock()
	invalid := g.invalid
	g.mu.Unlock()
	if invalid {
		return false
	}

	if err := g.safeProbe(ctx); err != nil {
		slog.Warn("Host context invalidated", "error", err)
		g.Invalidate()
		return false
	}

	return true
}

// Invalidate marks the context invalid and runs teardown. Idempotent:
// calling it when already torn down is a no-op.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	if g.invalid {
		g.mu.Unlock()
		return
	}
	g.invalid = true
	teardown := g.teardown
	g.mu.Unlock()

	if teardown != nil {
		teardown()
	}
}

func (g *Guard) safeProbe(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &probePanicError{value: r}
		}
	}()

	if g.probe == nil {
		return nil
	}
	return g.probe(ctx)
}

type probePanicError struct {
	value interface{}
}

func (e *probePanicError) Error() string {
	return "reachability probe panicked"
}
