package channel

import (
	"context"
	"fmt"
	"log/slog"
)

// Adapter wraps the outbound channel with invalidation-aware error handling.
// Callers always receive exactly one Outcome: context invalidation,
// delivery faults, and synchronous panics from the sender all map to a
// uniform failure outcome instead of propagating.
type Adapter struct {
	sender  Sender
	checker ContextChecker
}

func NewAdapter(sender Sender, checker ContextChecker) *Adapter {
	return &Adapter{sender: sender, checker: checker}
}

func (a *Adapter) Send(ctx context.Context, msg Message) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Channel send panicked", "action", msg.Action, "panic", r)
			outcome = Outcome{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	if a.checker != nil && !a.checker.Valid(ctx) {
		return Outcome{Success: false, Error: "context invalidated"}
	}

	result, err := a.sender.Send(ctx, msg)
	if err != nil {
		slog.Warn("Channel delivery failed", "action", msg.Action, "error", err)
		return Outcome{Success: false, Error: err.Error()}
	}

	return result
}
