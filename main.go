package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"outofbound/internal/audit"
	"outofbound/internal/auth"
	"outofbound/internal/config"
	"outofbound/internal/logging"
	"outofbound/internal/observability/metrics"
	ruleapp "outofbound/internal/rules/application"
	"outofbound/internal/rules/infrastructure/memory"
	rulerepo "outofbound/internal/rules/infrastructure/postgres"
	rulehttp "outofbound/internal/rules/interfaces/http"
	rulenotify "outofbound/internal/rules/notify"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	logging.Init(cfg.LogLevel)
	logger := logging.Logger
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	var (
		db      *sql.DB
		store   ruleapp.ConfigStore
		auditor audit.Logger
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db open error")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatal().Err(err).Msg("db ping error")
		}
		store = rulerepo.NewRuleConfigRepository(db)
		auditor = audit.NewRepository(db)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, rule configs kept in memory")
		store = memory.NewRuleConfigRepository()
		auditor = audit.NewLogWriter(logging.WithComponent("audit"))
	}

	metrics.Init(db, logger)

	broker := rulehttp.NewSSEBroker(cfg.StreamBuffer)
	notifier := rulenotify.NewMultiNotifier(
		rulenotify.NewLogNotifier(logging.WithComponent("rules.notify")),
		broker,
	)

	registry, err := ruleapp.NewRegistry(store,
		ruleapp.WithEngineOptions(
			ruleapp.WithNotifier(notifier),
			ruleapp.WithLogger(logging.WithComponent("rules.engine")),
		),
		ruleapp.WithAuditLogger(auditor),
		ruleapp.WithRegistryLogger(logging.WithComponent("rules.registry")),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("rule registry error")
	}

	ctx := context.Background()
	if _, err := registry.Restore(ctx); err != nil {
		logger.Fatal().Err(err).Msg("rule restore error")
	}
	for name, path := range cfg.RuleFiles() {
		doc, err := ruleapp.LoadRuleConfigFile(path)
		if err != nil {
			logger.Fatal().Err(err).Str("instance", name).Msg("rule file error")
		}
		if _, report, err := registry.Init(ctx, name, doc); err != nil {
			logger.Fatal().Err(err).Str("instance", name).Msg("rule init error")
		} else if !report.OK() {
			logger.Warn().Str("instance", name).Str("error", report.ParseError).Msg("rule file not parsed")
		}
	}

	ruleHandler, err := rulehttp.NewHandler(registry, logging.WithComponent("rules.http"))
	if err != nil {
		logger.Fatal().Err(err).Msg("rule handler error")
	}
	ingestHandler, err := rulehttp.NewIngestHandler(registry, logging.WithComponent("rules.ingest"))
	if err != nil {
		logger.Fatal().Err(err).Msg("ingest handler error")
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	authMiddleware.Logger = logging.WithComponent("auth")
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), cfg.IngestSkew())

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/rules", ruleHandler)
	mux.Handle("/api/v1/rules/", ruleHandler)
	mux.Handle("/api/v1/rules/stream", rulehttp.NewStreamHandler(broker))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logging.WithComponent("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-stop.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown error")
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddr).Strs("instances", registry.Names()).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("http server stopped")
}

func loggingMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(routeLabel(r.URL.Path), strconv.Itoa(resp.status))
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", resp.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// routeLabel collapses instance names out of rule paths.
func routeLabel(path string) string {
	const prefix = "/api/v1/rules/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "info" || rest == "stream" {
		return path
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return prefix + "{name}" + rest[idx:]
	}
	return prefix + "{name}"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
