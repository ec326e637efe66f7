package feed

import (
	"context"
	"log/slog"
)

// DryRunDispatcher logs the reply it would have posted and reports
// success, so the rest of the loop (recording included) behaves exactly
// as in a real run.
type DryRunDispatcher struct{}

// SubmitReply logs the reply instead of posting it.
func (DryRunDispatcher) SubmitReply(ctx context.Context, locator any, text string) bool {
	slog.Info("dry run: would post reply", "reply", text)
	return true
}

var _ Dispatcher = DryRunDispatcher{}
