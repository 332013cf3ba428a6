package notify

import (
	"context"

	"github.com/rs/zerolog"

	ruleapp "outofbound/internal/rules/application"
	rules "outofbound/internal/rules/domain"
)

// LogNotifier writes state events to a structured logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event. Triggered events log at warn level.
func (n *LogNotifier) Notify(_ context.Context, event ruleapp.StateEvent) {
	if n == nil {
		return
	}
	entry := n.logger.Info()
	if event.Reason == rules.ReasonTriggered {
		entry = n.logger.Warn()
	}
	entry.
		Str("instance", event.Instance).
		Str("reason", event.Reason).
		Str("previous", event.Previous).
		Time("at", event.At).
		Msg("rule notification")
}
