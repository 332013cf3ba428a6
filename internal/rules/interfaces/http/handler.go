package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"outofbound/internal/auth"
	"outofbound/internal/observability/metrics"
	ruleapp "outofbound/internal/rules/application"
	rules "outofbound/internal/rules/domain"
)

const (
	routePrefix  = "/api/v1/rules"
	maxBodyBytes = 4 << 20
)

// Handler provides rule instance HTTP endpoints.
type Handler struct {
	registry *ruleapp.Registry
	logger   zerolog.Logger
}

// NewHandler constructs a handler.
func NewHandler(registry *ruleapp.Registry, logger zerolog.Logger) (*Handler, error) {
	if registry == nil {
		return nil, errors.New("rules handler: nil registry")
	}
	return &Handler{registry: registry, logger: logger}, nil
}

type instanceView struct {
	Name     string               `json:"name"`
	Reason   string               `json:"reason"`
	Assets   int                  `json:"assets"`
	Triggers int                  `json:"triggers"`
	Summary  []rules.SummaryEntry `json:"summary,omitempty"`
	// UpdatedAt is when the rule_config was last stored; detail view only.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type evalResponse struct {
	Result bool   `json:"result"`
	Reason string `json:"reason"`
}

// ServeHTTP handles /api/v1/rules and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == routePrefix:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case r.URL.Path == routePrefix+"/info":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, ruleapp.PluginInfo())
	case strings.HasPrefix(r.URL.Path, routePrefix+"/"):
		h.handleInstance(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleList lists the instances visible to the caller's token scope.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	out := make([]instanceView, 0, len(names))
	for _, name := range names {
		if !auth.CanAccessInstance(r.Context(), name) {
			continue
		}
		engine, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, viewOf(engine, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleInstance(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, routePrefix+"/")
	parts := strings.Split(path, "/")
	name := parts[0]
	if name == "" || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, name)
		case http.MethodPut:
			h.handleConfigure(w, r, name)
		case http.MethodDelete:
			h.handleShutdown(w, r, name)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	action := parts[1]
	if action == "eval" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleEvaluate(w, r, name)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	engine, ok := h.lookup(w, name)
	if !ok {
		return
	}
	switch action {
	case "triggers":
		writeRaw(w, engine.DescribeTriggers())
	case "reason":
		writeRaw(w, engine.DescribeReason())
	case "triggers.xlsx":
		h.handleExport(w, engine, formatXLSX)
	case "triggers.pdf":
		h.handleExport(w, engine, formatPDF)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, name string) {
	engine, ok := h.lookup(w, name)
	if !ok {
		return
	}
	view := viewOf(engine, true)
	storedAt, err := h.registry.StoredAt(r.Context(), name)
	if err != nil {
		h.logger.Warn().Err(err).Str("instance", name).Msg("stored rule_config not read")
	} else {
		view.UpdatedAt = &storedAt
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleConfigure(w http.ResponseWriter, r *http.Request, name string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	_, report, err := h.registry.Init(r.Context(), name, body)
	if err != nil {
		h.logger.Error().Err(err).Str("instance", name).Msg("configure rule instance")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleShutdown(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.registry.Shutdown(r.Context(), name); err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("instance", name).Msg("shutdown rule instance")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request, name string) {
	engine, ok := h.lookup(w, name)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	readings, err := ruleapp.ParseReadings(body)
	if err != nil {
		metrics.ObserveEvaluation(metrics.ResultInvalid, 0)
		http.Error(w, "invalid readings document", http.StatusBadRequest)
		return
	}
	result := engine.EvaluateReadings(readings)
	writeJSON(w, http.StatusOK, evalResponse{Result: result, Reason: engine.State().Reason()})
}

func (h *Handler) handleExport(w http.ResponseWriter, engine *ruleapp.Engine, format string) {
	start := time.Now()
	data, err := BuildExport(format, ExportInput{
		Instance:    engine.Name(),
		Reason:      engine.State().Reason(),
		Set:         engine.Snapshot(),
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		h.logger.Error().Err(err).Str("instance", engine.Name()).Str("format", format).Msg("export triggers")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": engine.Name() + "-triggers." + format,
	}))
	_, _ = w.Write(data)
}

func (h *Handler) lookup(w http.ResponseWriter, name string) (*ruleapp.Engine, bool) {
	engine, err := h.registry.Get(name)
	if err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return nil, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return engine, true
}

func viewOf(engine *ruleapp.Engine, detail bool) instanceView {
	set := engine.Snapshot()
	view := instanceView{
		Name:     engine.Name(),
		Reason:   engine.State().Reason(),
		Assets:   set.Len(),
		Triggers: set.TriggerCount(),
	}
	if detail {
		view.Summary = set.Summary()
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}
