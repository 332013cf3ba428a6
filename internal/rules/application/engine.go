package application

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"outofbound/internal/observability/metrics"
	rules "outofbound/internal/rules/domain"
)

// StateNotifier receives trigger state transitions.
type StateNotifier interface {
	Notify(ctx context.Context, event StateEvent)
}

// StateEvent describes a transition of a rule instance.
type StateEvent struct {
	Instance string    `json:"instance"`
	Reason   string    `json:"reason"`
	Previous string    `json:"previous"`
	At       time.Time `json:"at"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Engine is one OutOfBound rule instance. Configure may race with Evaluate;
// Evaluate itself must not be called concurrently on the same engine.
type Engine struct {
	name string

	mu       sync.RWMutex
	triggers *rules.TriggerSet
	state    atomic.Int32

	notifier StateNotifier
	clock    Clock
	logger   zerolog.Logger
}

// EngineOption customizes an engine.
type EngineOption func(*Engine)

// WithNotifier assigns a state notifier.
func WithNotifier(notifier StateNotifier) EngineOption {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger assigns a logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine constructs an unconfigured engine in the cleared state.
func NewEngine(name string, opts ...EngineOption) (*Engine, error) {
	if name == "" {
		return nil, rules.ErrEmptyInstance
	}
	engine := &Engine{
		name:     name,
		triggers: rules.NewTriggerSet(),
		clock:    systemClock{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	engine.logger = engine.logger.With().Str("instance", name).Logger()
	return engine, nil
}

// Name returns the instance name.
func (e *Engine) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Configure replaces the trigger set with one compiled from doc. The previous
// set is discarded even when doc does not parse. State is left as is.
func (e *Engine) Configure(doc []byte) CompileReport {
	if e == nil {
		return CompileReport{ParseError: "rules: nil engine"}
	}
	e.mu.Lock()
	set, report := Compile(doc)
	e.triggers = set
	e.mu.Unlock()

	if !report.OK() {
		metrics.IncConfigure(metrics.ResultInvalid)
		e.logger.Warn().Str("error", report.ParseError).Msg("rule_config not parsed, trigger set cleared")
	} else {
		metrics.IncConfigure(metrics.ResultSuccess)
		event := e.logger.Info().
			Int("rules", report.Rules).
			Int("compiled", report.Compiled).
			Int("triggers", report.Triggers)
		if len(report.Issues) > 0 {
			event = event.Int("skipped", len(report.Issues))
		}
		event.Msg("rule configured")
	}
	for _, issue := range report.Issues {
		e.logger.Debug().Int("rule", issue.Rule).Str("field", issue.Field).Msg(issue.Reason)
	}
	metrics.SetTriggers(e.name, report.Triggers)
	return report
}

// Reconfigure is Configure under its host-facing name.
func (e *Engine) Reconfigure(doc []byte) CompileReport {
	return e.Configure(doc)
}

// Snapshot returns the current trigger set. The set is never mutated after
// it is installed.
func (e *Engine) Snapshot() *rules.TriggerSet {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.triggers
}

// Evaluate parses a readings document and evaluates it. A document that does
// not parse yields false and leaves the state untouched.
func (e *Engine) Evaluate(doc []byte) bool {
	if e == nil {
		return false
	}
	start := time.Now()
	readings, err := ParseReadings(doc)
	if err != nil {
		e.logger.Warn().Err(err).Msg("readings not parsed")
		metrics.ObserveEvaluation(metrics.ResultInvalid, time.Since(start))
		return false
	}
	return e.evaluate(readings, start)
}

// EvaluateReadings evaluates already decoded readings.
func (e *Engine) EvaluateReadings(readings Readings) bool {
	if e == nil {
		return false
	}
	return e.evaluate(readings, time.Now())
}

func (e *Engine) evaluate(readings Readings, start time.Time) bool {
	result := Evaluate(e.Snapshot(), readings)
	next := rules.StateFor(result)
	prev := rules.State(e.state.Swap(int32(next)))
	metrics.ObserveEvaluation(next.Reason(), time.Since(start))
	if prev != next {
		e.transition(prev, next)
	}
	return result
}

func (e *Engine) transition(prev, next rules.State) {
	metrics.IncStateTransition(next.Reason())
	e.logger.Info().Str("from", prev.Reason()).Str("to", next.Reason()).Msg("rule state changed")
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(context.Background(), StateEvent{
		Instance: e.name,
		Reason:   next.Reason(),
		Previous: prev.Reason(),
		At:       e.clock.Now().UTC(),
	})
}

// State returns the state recorded by the last evaluation.
func (e *Engine) State() rules.State {
	if e == nil {
		return rules.StateCleared
	}
	return rules.State(e.state.Load())
}

// Summary returns one entry per configured asset.
func (e *Engine) Summary() []rules.SummaryEntry {
	return e.Snapshot().Summary()
}

// DescribeTriggers returns {"triggers":[{"asset":name,label:interval},...]}.
// Assets without a window statistic carry only their name.
func (e *Engine) DescribeTriggers() []byte {
	entries := e.Summary()
	out := struct {
		Triggers []triggerEntry `json:"triggers"`
	}{Triggers: make([]triggerEntry, 0, len(entries))}
	for _, entry := range entries {
		out.Triggers = append(out.Triggers, triggerEntry(entry))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return []byte(`{"triggers":[]}`)
	}
	return data
}

// DescribeReason returns {"reason":"triggered"|"cleared"}.
func (e *Engine) DescribeReason() []byte {
	data, _ := json.Marshal(struct {
		Reason string `json:"reason"`
	}{Reason: e.State().Reason()})
	return data
}

type triggerEntry rules.SummaryEntry

// MarshalJSON keeps "asset" first and keys the interval by the evaluation label.
func (t triggerEntry) MarshalJSON() ([]byte, error) {
	asset, err := json.Marshal(t.Asset)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 64)
	buf = append(buf, `{"asset":`...)
	buf = append(buf, asset...)
	if t.Label != "" {
		label, err := json.Marshal(t.Label)
		if err != nil {
			return nil, err
		}
		buf = append(buf, ',')
		buf = append(buf, label...)
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, uint64(t.Interval), 10)
	}
	buf = append(buf, '}')
	return buf, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
