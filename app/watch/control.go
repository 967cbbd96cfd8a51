package watch

import (
	"sync"

	"github.com/lysyi3m/post-comb/app/page"
	"github.com/lysyi3m/post-comb/app/source"
)

// Control is the engine-side state of one injected clip control. The
// presentation cycles idle → pending → success|failure; success removes the
// control after the display delay, failure reverts to idle so the action can
// be retried.
type Control struct {
	key      string
	selector string
	index    int
	source   source.Source

	mu    sync.Mutex
	state page.ControlState
}

func NewControl(key, selector string, index int, src source.Source) *Control {
	return &Control{
		key:      key,
		selector: selector,
		index:    index,
		source:   src,
		state:    page.StateIdle,
	}
}

func (c *Control) Key() string {
	return c.key
}

func (c *Control) State() page.ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition moves from into to atomically; a second activation during
// pending finds the control already out of idle and is refused.
func (c *Control) transition(from, to page.ControlState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != from {
		return false
	}
	c.state = to
	return true
}

func (c *Control) setState(state page.ControlState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}
