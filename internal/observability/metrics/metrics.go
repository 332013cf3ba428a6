package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "rules_"

	resultSuccess = "success"
	resultError   = "error"
	resultInvalid = "invalid"

	evalTriggered = "triggered"
	evalCleared   = "cleared"
)

var (
	registerOnce sync.Once

	evaluationsTotal  *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec

	configureTotal *prometheus.CounterVec
	triggerCount   *prometheus.GaugeVec

	stateTransitions *prometheus.CounterVec

	httpRequests *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers rule engine metrics and DB-backed gauges.
func Init(db *sql.DB, logger zerolog.Logger) {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluations_total",
				Help: "Total rule evaluations by result",
			},
			[]string{"result"},
		)
		evaluationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "evaluation_latency_seconds",
				Help:    "Rule evaluation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"result"},
		)

		configureTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "configure_total",
				Help: "Total rule configurations by result",
			},
			[]string{"result"},
		)
		triggerCount = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "triggers",
				Help: "Compiled triggers per rule instance",
			},
			[]string{"instance"},
		)

		stateTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "state_transitions_total",
				Help: "Total rule state transitions by new state",
			},
			[]string{"state"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total trigger summary exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Trigger summary export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			evaluationsTotal,
			evaluationLatency,
			configureTotal,
			triggerCount,
			stateTransitions,
			httpRequests,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveEvaluation records evaluation latency and result.
func ObserveEvaluation(result string, duration time.Duration) {
	if result == "" {
		result = evalCleared
	}
	if evaluationsTotal != nil {
		evaluationsTotal.WithLabelValues(result).Inc()
	}
	if evaluationLatency != nil {
		evaluationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncConfigure increments the configure counter.
func IncConfigure(result string) {
	if result == "" {
		result = resultSuccess
	}
	if configureTotal != nil {
		configureTotal.WithLabelValues(result).Inc()
	}
}

// SetTriggers sets the compiled trigger count of an instance.
func SetTriggers(instance string, count int) {
	if instance == "" {
		return
	}
	if triggerCount != nil {
		triggerCount.WithLabelValues(instance).Set(float64(count))
	}
}

// DeleteTriggers drops the trigger gauge of a removed instance.
func DeleteTriggers(instance string) {
	if triggerCount != nil {
		triggerCount.DeleteLabelValues(instance)
	}
}

// IncStateTransition increments the transition counter.
func IncStateTransition(state string) {
	if state == "" {
		state = "unknown"
	}
	if stateTransitions != nil {
		stateTransitions.WithLabelValues(state).Inc()
	}
}

// IncHTTPRequest increments the HTTP request counter.
func IncHTTPRequest(route, status string) {
	if route == "" {
		route = "unknown"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, status).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultInvalid = resultInvalid

	EvalTriggered = evalTriggered
	EvalCleared   = evalCleared
)
