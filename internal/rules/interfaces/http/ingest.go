package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"outofbound/internal/observability/metrics"
	ruleapp "outofbound/internal/rules/application"
)

// IngestHandler evaluates pushed readings against every rule instance.
type IngestHandler struct {
	registry *ruleapp.Registry
	logger   zerolog.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(registry *ruleapp.Registry, logger zerolog.Logger) (*IngestHandler, error) {
	if registry == nil {
		return nil, errors.New("ingest handler: nil registry")
	}
	return &IngestHandler{registry: registry, logger: logger}, nil
}

// ServeHTTP handles POST /ingest/readings.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	results, err := h.registry.EvaluateAll(body)
	if err != nil {
		metrics.ObserveEvaluation(metrics.ResultInvalid, time.Since(start))
		h.logger.Warn().Err(err).Msg("ingest readings not parsed")
		http.Error(w, "invalid readings document", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Results map[string]bool `json:"results"`
	}{Results: results})
}
