package prompt

import (
	"context"
	"log/slog"
)

// LogNotifier records acknowledgements in the structured log. Browser
// clients receive them through the map event stream.
type LogNotifier struct{}

// Notify logs message.
func (LogNotifier) Notify(ctx context.Context, message string) error {
	slog.InfoContext(ctx, "user notice", "message", message)
	return nil
}
