package notify

import (
	"context"

	ruleapp "outofbound/internal/rules/application"
)

// MultiNotifier dispatches state events to multiple notifiers.
type MultiNotifier struct {
	notifiers []ruleapp.StateNotifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...ruleapp.StateNotifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Notify forwards events to all notifiers.
func (m *MultiNotifier) Notify(ctx context.Context, event ruleapp.StateEvent) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		if notifier != nil {
			notifier.Notify(ctx, event)
		}
	}
}
