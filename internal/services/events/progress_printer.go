package events

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// NewProgressLogger returns a handler that logs each reasoning step as a
// one-line progress update. Register it for EventReasoningStep.
func NewProgressLogger(logger arbor.ILogger) interfaces.EventHandler {
	return func(_ context.Context, event interfaces.Event) error {
		progress, ok := event.Payload.(interfaces.ProgressEvent)
		if !ok {
			return nil
		}
		logger.Info().
			Str("run_id", progress.RunID).
			Str("step", progress.Label).
			Msg(progress.Detail)
		return nil
	}
}
