package watch

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/lysyi3m/post-comb/app/source"
)

// Engine drives the scan/inject lifecycle against a live page: a fixed
// periodic tick covers content that appears without a mutation signal, a
// debounced mutation trigger absorbs virtualized-list storms, and a
// navigation check on every mutation handles single-page-application view
// swaps. Every trigger consults the context guard first.
type Engine struct {
	session  sessionFacade
	registry *source.Registry
	injector *Injector
	guard    *Guard
	stats    *Stats

	interval       time.Duration
	debounceWindow time.Duration
	navDelay       time.Duration

	mu    sync.Mutex
	state *runtimeState
}

// sessionFacade is the slice of page.Session the engine itself touches.
type sessionFacade interface {
	URL(ctx context.Context) (string, error)
	Mutations() <-chan struct{}
	Activations() <-chan string
}

// runtimeState holds the engine's process-wide mutable handles. Exactly one
// exists while the engine runs; teardown consumes it exactly once, and only
// a fresh Start creates another.
type runtimeState struct {
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	debouncer *Debouncer

	mu       sync.Mutex
	navTimer *time.Timer
	lastURL  string
}

type Options struct {
	Interval       time.Duration // periodic rescan tick
	DebounceWindow time.Duration // mutation coalescing quiet period
	NavDelay       time.Duration // rescan delay after an SPA navigation
}

func NewEngine(session sessionFacade, registry *source.Registry,
	injector *Injector, guard *Guard, stats *Stats, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 500 * time.Millisecond
	}
	if opts.NavDelay <= 0 {
		opts.NavDelay = time.Second
	}

	e := &Engine{
		session:        session,
		registry:       registry,
		injector:       injector,
		guard:          guard,
		stats:          stats,
		interval:       opts.Interval,
		debounceWindow: opts.DebounceWindow,
		navDelay:       opts.NavDelay,
	}

	guard.SetTeardown(e.teardown)

	return e
}

// Start installs the timer and mutation observation. Idempotent at the
// process level: any previous runtime state is torn down first, so repeated
// starts never leak duplicate timers.
func (e *Engine) Start() {
	if prev := e.consumeState(); prev != nil {
		stopState(prev)
		prev.wg.Wait()
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &runtimeState{
		ctx:       ctx,
		cancel:    cancel,
		debouncer: NewDebouncer(e.debounceWindow),
	}

	if current, err := e.session.URL(ctx); err == nil {
		st.lastURL = current
	}

	e.mu.Lock()
	e.state = st
	e.mu.Unlock()

	st.wg.Add(1)
	go e.loop(st)

	slog.Info("Engine started",
		"interval", e.interval,
		"debounce_window", e.debounceWindow)
}

// Stop tears down the engine and waits for the loop to exit.
func (e *Engine) Stop() {
	st := e.consumeState()
	if st == nil {
		return
	}
	stopState(st)
	st.wg.Wait()

	e.removeInjected()
	e.stats.recordTeardown()
	slog.Info("Engine stopped")
}

// Running reports whether the engine currently holds runtime state.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != nil
}

func (e *Engine) loop(st *runtimeState) {
	defer st.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.rescan(st.ctx)

	for {
		select {
		case <-st.ctx.Done():
			return

		case <-ticker.C:
			if !e.guard.Valid(st.ctx) {
				continue
			}
			e.rescan(st.ctx)

		case <-e.session.Mutations():
			if !e.guard.Valid(st.ctx) {
				continue
			}
			e.checkNavigation(st)
			st.debouncer.Debounce(func() {
				if !e.guard.Valid(st.ctx) {
					return
				}
				e.rescan(st.ctx)
			})

		case key := <-e.session.Activations():
			if !e.guard.Valid(st.ctx) {
				continue
			}
			e.injector.Activate(st.ctx, key)
		}
	}
}

// rescan classifies the current location and injects controls into any
// unprocessed units.
func (e *Engine) rescan(ctx context.Context) {
	raw, err := e.session.URL(ctx)
	if err != nil {
		slog.Debug("Rescan skipped, location unreadable", "error", err)
		return
	}

	pageURL, err := url.Parse(raw)
	if err != nil {
		slog.Debug("Rescan skipped, location unparseable", "url", raw, "error", err)
		return
	}

	src := e.registry.Classify(pageURL)
	injected, err := e.injector.ScanAndInject(ctx, src)
	if err != nil {
		slog.Warn("Scan failed", "source", src, "error", err)
		return
	}

	e.stats.recordRescan(injected)
}

// checkNavigation compares the current location against the last-seen one.
// A change on a single-page-application source means the view was swapped
// in place: stale controls are removed and a delayed rescan accommodates the
// new view's asynchronous render. Ordinary sources replace the whole
// document on navigation, so there is nothing stale to clean up.
func (e *Engine) checkNavigation(st *runtimeState) {
	current, err := e.session.URL(st.ctx)
	if err != nil {
		return
	}

	st.mu.Lock()
	changed := current != st.lastURL && st.lastURL != ""
	if changed || st.lastURL == "" {
		st.lastURL = current
	}
	st.mu.Unlock()

	if !changed {
		return
	}

	pageURL, err := url.Parse(current)
	if err != nil {
		return
	}
	def := e.registry.Definition(e.registry.Classify(pageURL))
	if def == nil || !def.SinglePageApp {
		return
	}

	slog.Info("Navigation detected", "url", current)
	e.stats.recordNavigation()
	e.injector.RemoveAll(st.ctx)

	st.mu.Lock()
	if st.navTimer != nil {
		st.navTimer.Stop()
	}
	st.navTimer = time.AfterFunc(e.navDelay, func() {
		if !e.guard.Valid(st.ctx) {
			return
		}
		e.rescan(st.ctx)
	})
	st.mu.Unlock()
}

// teardown is the guard's registered cleanup: cancel the timer loop, drop
// pending debounced work, and remove engine-owned UI. Safe to call from
// inside the loop goroutine, so it does not wait for the loop to exit.
func (e *Engine) teardown() {
	st := e.consumeState()
	if st == nil {
		return
	}

	stopState(st)
	e.removeInjected()
	e.stats.recordTeardown()
	slog.Info("Engine torn down, host context invalid")
}

// consumeState detaches the runtime state exactly once.
func (e *Engine) consumeState() *runtimeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.state
	e.state = nil
	return st
}

func stopState(st *runtimeState) {
	st.cancel()
	st.debouncer.Cancel()

	st.mu.Lock()
	if st.navTimer != nil {
		st.navTimer.Stop()
		st.navTimer = nil
	}
	st.mu.Unlock()
}

func (e *Engine) removeInjected() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	e.injector.RemoveAll(ctx)
}
