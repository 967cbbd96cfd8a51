package page

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// MarkAttr is the single advisory attribute written onto a processed content
// unit. Losing it when the host page recycles the unit simply means the unit
// gets processed again on the next scan.
const MarkAttr = "data-pc-clipped"

// ControlAttr identifies engine-owned injected controls.
const ControlAttr = "data-pc-control"

// ControlState is the presentation state of an injected control.
type ControlState string

const (
	StateIdle    ControlState = "idle"
	StatePending ControlState = "pending"
	StateSuccess ControlState = "success"
	StateFailure ControlState = "failure"
)

// Session is a live document the engine observes and injects into. The page
// owns the document tree: the session only reads snapshots, writes the mark
// attribute, and manages injected controls. Implementations: a browser-backed
// session driving a real page and a static session over an HTML string.
type Session interface {
	// URL returns the current page location.
	URL(ctx context.Context) (string, error)

	// Document returns a parsed snapshot of the current document tree.
	Document(ctx context.Context) (*goquery.Document, error)

	// InjectControl marks the index-th unit matching selector and attaches
	// a clip control keyed by key. Idempotent per unit.
	InjectControl(ctx context.Context, selector string, index int, key string) error

	// SetControlState updates the presentation state of an injected control.
	SetControlState(ctx context.Context, key string, state ControlState) error

	// RemoveControl removes one injected control, leaving the mark in place.
	RemoveControl(ctx context.Context, key string) error

	// RemoveInjected removes every engine-owned injected element.
	RemoveInjected(ctx context.Context) error

	// Mutations signals structural changes to the page's content area.
	// Bursts are expected; consumers debounce.
	Mutations() <-chan struct{}

	// Activations delivers the control key each time a user activates an
	// injected control.
	Activations() <-chan string

	// Alive probes whether the host context is still reachable. An error
	// (or a panic inside the probe) is evidence of invalidation.
	Alive(ctx context.Context) error

	Close() error
}
