package watch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/post-comb/app/channel"
	"github.com/lysyi3m/post-comb/app/extract"
	"github.com/lysyi3m/post-comb/app/page"
	"github.com/lysyi3m/post-comb/app/source"
)

// Injector locates content units on the page, marks each exactly once, and
// attaches a clip control bound to it. The mark attribute lives on the unit
// in the host document, so the injector itself holds no reference to page
// content beyond its control registry.
type Injector struct {
	session     page.Session
	registry    *source.Registry
	extractor   *extract.Extractor
	adapter     *channel.Adapter
	guard       *Guard
	stats       *Stats
	revertDelay time.Duration

	mu       sync.Mutex
	controls map[string]*Control
	seq      int
}

func NewInjector(session page.Session, registry *source.Registry,
	extractor *extract.Extractor, adapter *channel.Adapter, guard *Guard,
	stats *Stats, revertDelay time.Duration) *Injector {
	return &Injector{
		session:     session,
		registry:    registry,
		extractor:   extractor,
		adapter:     adapter,
		guard:       guard,
		stats:       stats,
		revertDelay: revertDelay,
		controls:    make(map[string]*Control),
	}
}

// ScanAndInject processes every unit matching the source's structural
// selector, in document order. Idempotent per unit: units carrying the mark
// attribute are skipped, so a second scan without document changes is a
// no-op.
func (i *Injector) ScanAndInject(ctx context.Context, src source.Source) (int, error) {
	def := i.registry.Definition(src)

	doc, err := i.session.Document(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot document: %w", err)
	}

	injected := 0
	doc.Find(def.UnitSelector).Each(func(idx int, unit *goquery.Selection) {
		if _, marked := unit.Attr(page.MarkAttr); marked {
			return
		}

		key := i.nextKey()
		if err := i.session.InjectControl(ctx, def.UnitSelector, idx, key); err != nil {
			slog.Debug("Control injection skipped", "source", src, "index", idx, "error", err)
			return
		}

		i.mu.Lock()
		i.controls[key] = NewControl(key, def.UnitSelector, idx, src)
		i.mu.Unlock()
		injected++
	})

	if injected > 0 {
		slog.Info("Controls injected", "source", src, "count", injected)
	}

	return injected, nil
}

// Activate runs the clip action for one control: pending presentation,
// synchronous extraction against live document state, then asynchronous
// dispatch through the channel adapter.
func (i *Injector) Activate(ctx context.Context, key string) {
	if !i.guard.Valid(ctx) {
		slog.Debug("Activation ignored, host context invalid", "key", key)
		return
	}

	control := i.control(key)
	if control == nil {
		slog.Warn("Activation for unknown control", "key", key)
		return
	}

	// A second activation while the prior request is in flight is refused;
	// the state machine only leaves idle once.
	if !control.transition(page.StateIdle, page.StatePending) {
		slog.Debug("Control busy, activation ignored", "key", key, "state", control.State())
		return
	}

	if err := i.session.SetControlState(ctx, key, page.StatePending); err != nil {
		slog.Debug("Failed to present pending state", "key", key, "error", err)
	}

	record := i.extractForControl(ctx, control)

	go i.dispatch(control, record)
}

// RemoveAll removes every injected control from the page and clears the
// registry. Used on navigation (stale affordances) and during teardown.
func (i *Injector) RemoveAll(ctx context.Context) {
	if err := i.session.RemoveInjected(ctx); err != nil {
		slog.Debug("Failed to remove injected UI", "error", err)
	}

	i.mu.Lock()
	i.controls = make(map[string]*Control)
	i.mu.Unlock()
}

// ControlCount reports the number of tracked controls.
func (i *Injector) ControlCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.controls)
}

// extractForControl reads live document state at activation time. A unit
// that disappeared between injection and activation degrades to page-level
// extraction rather than failing the action.
func (i *Injector) extractForControl(ctx context.Context, control *Control) extract.Record {
	doc, err := i.session.Document(ctx)
	if err != nil {
		slog.Warn("Extraction snapshot failed", "key", control.key, "error", err)
		return extract.Record{Source: string(control.source)}
	}

	pageURL := i.currentURL(ctx)

	var unit *goquery.Selection
	if found := doc.Find(control.selector).Eq(control.index); found.Length() > 0 {
		unit = found
	}

	return i.extractor.Run(control.source, doc, unit, pageURL)
}

func (i *Injector) dispatch(control *Control, record extract.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	outcome := i.adapter.Send(ctx, channel.Message{
		Action: channel.ActionSavePost,
		Data:   record,
	})

	i.stats.recordClip(outcome.Success)

	if outcome.Success {
		control.setState(page.StateSuccess)
		i.presentState(control.key, page.StateSuccess)
		time.AfterFunc(i.revertDelay, func() { i.removeControl(control.key) })
		return
	}

	slog.Warn("Clip save failed", "key", control.key, "url", record.CanonicalURL, "error", outcome.Error)
	control.setState(page.StateFailure)
	i.presentState(control.key, page.StateFailure)
	time.AfterFunc(i.revertDelay, func() {
		control.setState(page.StateIdle)
		i.presentState(control.key, page.StateIdle)
	})
}

func (i *Injector) presentState(key string, state page.ControlState) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.session.SetControlState(ctx, key, state); err != nil {
		slog.Debug("Failed to present control state", "key", key, "state", state, "error", err)
	}
}

func (i *Injector) removeControl(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.session.RemoveControl(ctx, key); err != nil {
		slog.Debug("Failed to remove control", "key", key, "error", err)
	}

	i.mu.Lock()
	delete(i.controls, key)
	i.mu.Unlock()
}

func (i *Injector) control(key string) *Control {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.controls[key]
}

func (i *Injector) nextKey() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seq++
	return fmt.Sprintf("pc-%d", i.seq)
}

func (i *Injector) currentURL(ctx context.Context) *url.URL {
	raw, err := i.session.URL(ctx)
	if err != nil {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}
