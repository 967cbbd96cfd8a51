package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of rapid notifications into a single call after
// a quiet window. Scroll-driven virtualized lists emit mutation storms; only
// the last notification within the window triggers work.
type Debouncer struct {
	mu     sync.Mutex
	timer  *time.Timer
	window time.Duration
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Debounce schedules fn to run after the quiet window elapses without any
// further call. Rapid successive calls reset the timer.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
