package rules

import "strings"

// Aggregation selects how datapoint values are framed for evaluation.
type Aggregation int

const (
	AggregationSingleItem Aggregation = iota
	AggregationWindow
)

// String returns the configuration label.
func (a Aggregation) String() string {
	switch a {
	case AggregationWindow:
		return "Window"
	default:
		return "Single Item"
	}
}

// WindowStatistic is the statistic declared for a window evaluation.
type WindowStatistic int

const (
	StatisticNone WindowStatistic = iota
	StatisticAll
	StatisticMaximum
	StatisticMinimum
	StatisticAverage
)

// String returns the label used in configuration and trigger summaries.
func (s WindowStatistic) String() string {
	switch s {
	case StatisticAll:
		return "All"
	case StatisticMaximum:
		return "Maximum"
	case StatisticMinimum:
		return "Minimum"
	case StatisticAverage:
		return "Average"
	default:
		return ""
	}
}

// ParseWindowStatistic maps a configuration label to a statistic, case-insensitively.
func ParseWindowStatistic(value string) (WindowStatistic, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "all":
		return StatisticAll, true
	case "maximum", "max":
		return StatisticMaximum, true
	case "minimum", "min":
		return StatisticMinimum, true
	case "average", "avg":
		return StatisticAverage, true
	default:
		return StatisticNone, false
	}
}

// Window describes the declared window framing. It is carried for reporting;
// evaluation does not aggregate over time.
type Window struct {
	Statistic WindowStatistic
	Seconds   uint
}

// ValueKind is the kind of a reading value. Only floats are compared.
type ValueKind int

const (
	KindFloat ValueKind = iota
	KindString
	KindOther
)

// Trigger watches one datapoint of an asset against a limit.
type Trigger struct {
	datapoint   string
	limit       float64
	aggregation Aggregation
	window      Window
	evalAll     bool
}

// TriggerSpec carries the fields used to build a Trigger.
type TriggerSpec struct {
	Datapoint         string
	Limit             float64
	Aggregation       Aggregation
	Window            Window
	EvalAllDatapoints bool
}

// NewTrigger validates spec and returns an immutable trigger.
func NewTrigger(spec TriggerSpec) (Trigger, error) {
	if spec.Datapoint == "" {
		return Trigger{}, ErrEmptyDatapoint
	}
	window := spec.Window
	if spec.Aggregation != AggregationWindow {
		window = Window{}
	}
	return Trigger{
		datapoint:   spec.Datapoint,
		limit:       spec.Limit,
		aggregation: spec.Aggregation,
		window:      window,
		evalAll:     spec.EvalAllDatapoints,
	}, nil
}

// Datapoint returns the watched datapoint name.
func (t Trigger) Datapoint() string { return t.datapoint }

// Limit returns the trigger_value threshold.
func (t Trigger) Limit() float64 { return t.limit }

func (t Trigger) Aggregation() Aggregation { return t.aggregation }

func (t Trigger) Window() Window { return t.window }

// EvalAllDatapoints reports whether sibling triggers of the asset combine with AND.
func (t Trigger) EvalAllDatapoints() bool { return t.evalAll }

// Label is the evaluation label reported in trigger summaries; empty for single items.
func (t Trigger) Label() string {
	return t.window.Statistic.String()
}

// Interval is the declared window length in seconds.
func (t Trigger) Interval() uint {
	return t.window.Seconds
}

// Exceeds reports whether value is strictly above the limit.
func (t Trigger) Exceeds(value float64) bool {
	return value > t.limit
}
