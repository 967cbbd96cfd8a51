package channel

import (
	"context"

	"github.com/lysyi3m/post-comb/app/extract"
)

const (
	ActionSavePost         = "save_post"
	ActionScrapeAndSave    = "scrape_and_save"
	ActionShowNotification = "show_notification"
)

// Message is the one outbound shape the engine sends.
type Message struct {
	Action string         `json:"action"`
	Data   extract.Record `json:"data"`
}

// Outcome is the uniform completion result: every send yields exactly one,
// success or not, and delivery faults never surface as errors or panics.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Sender delivers a message to the external persistence service.
type Sender interface {
	Send(ctx context.Context, msg Message) (Outcome, error)
}

// ContextChecker reports whether the host execution context is still valid.
// Satisfied by the watch package's context guard.
type ContextChecker interface {
	Valid(ctx context.Context) bool
}
