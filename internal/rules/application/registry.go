package application

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"outofbound/internal/audit"
	"outofbound/internal/observability/metrics"
	rules "outofbound/internal/rules/domain"
)

// ConfigStore persists rule_config documents by instance name.
type ConfigStore interface {
	Save(ctx context.Context, config rules.InstanceConfig) error
	Get(ctx context.Context, name string) (*rules.InstanceConfig, error)
	List(ctx context.Context) ([]rules.InstanceConfig, error)
	Delete(ctx context.Context, name string) error
}

// Registry owns the rule instances of a host process.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine

	store      ConfigStore
	auditor    audit.Logger
	engineOpts []EngineOption
	clock      Clock
	logger     zerolog.Logger
}

// RegistryOption customizes a registry.
type RegistryOption func(*Registry)

// WithEngineOptions applies opts to every engine the registry creates.
func WithEngineOptions(opts ...EngineOption) RegistryOption {
	return func(r *Registry) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithAuditLogger records configuration changes.
func WithAuditLogger(logger audit.Logger) RegistryOption {
	return func(r *Registry) {
		r.auditor = logger
	}
}

// WithRegistryLogger assigns a logger.
func WithRegistryLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryClock assigns the clock stamped on stored configs.
func WithRegistryClock(clock Clock) RegistryOption {
	return func(r *Registry) {
		r.clock = clock
	}
}

// NewRegistry constructs a registry backed by store.
func NewRegistry(store ConfigStore, opts ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, errors.New("rules: nil config store")
	}
	registry := &Registry{
		engines: make(map[string]*Engine),
		store:   store,
		clock:   systemClock{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry, nil
}

// Init creates or reconfigures the instance name from doc. The document is
// persisted before it is applied.
func (r *Registry) Init(ctx context.Context, name string, doc []byte) (*Engine, CompileReport, error) {
	if r == nil {
		return nil, CompileReport{}, errors.New("rules: nil registry")
	}
	if name == "" {
		return nil, CompileReport{}, rules.ErrEmptyInstance
	}
	if err := r.persist(ctx, name, doc); err != nil {
		return nil, CompileReport{}, err
	}

	r.mu.Lock()
	engine, ok := r.engines[name]
	if !ok {
		created, err := NewEngine(name, r.engineOpts...)
		if err != nil {
			r.mu.Unlock()
			return nil, CompileReport{}, err
		}
		engine = created
		r.engines[name] = engine
	}
	r.mu.Unlock()

	report := engine.Configure(doc)
	r.audit(ctx, audit.ActionRuleConfigure, name, report)
	return engine, report, nil
}

// Reconfigure replaces the rule_config of an existing instance.
func (r *Registry) Reconfigure(ctx context.Context, name string, doc []byte) (CompileReport, error) {
	engine, err := r.Get(name)
	if err != nil {
		return CompileReport{}, err
	}
	if err := r.persist(ctx, name, doc); err != nil {
		return CompileReport{}, err
	}
	report := engine.Reconfigure(doc)
	r.audit(ctx, audit.ActionRuleConfigure, name, report)
	return report, nil
}

// Get returns the instance name.
func (r *Registry) Get(name string) (*Engine, error) {
	if r == nil {
		return nil, errors.New("rules: nil registry")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.engines[name]
	if !ok {
		return nil, rules.ErrNotFound
	}
	return engine, nil
}

// Names returns instance names in lexical order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Shutdown removes the instance and its stored configuration.
func (r *Registry) Shutdown(ctx context.Context, name string) error {
	if _, err := r.Get(name); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, name); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.engines, name)
	r.mu.Unlock()

	metrics.DeleteTriggers(name)
	r.logger.Info().Str("instance", name).Msg("rule instance shut down")
	r.audit(ctx, audit.ActionRuleShutdown, name, CompileReport{})
	return nil
}

// EvaluateAll evaluates one readings document against every instance. A
// document that does not parse is rejected before any state changes.
func (r *Registry) EvaluateAll(doc []byte) (map[string]bool, error) {
	readings, err := ParseReadings(doc)
	if err != nil {
		return nil, err
	}
	results := make(map[string]bool)
	for _, name := range r.Names() {
		engine, err := r.Get(name)
		if err != nil {
			continue
		}
		results[name] = engine.EvaluateReadings(readings)
	}
	return results, nil
}

// Restore recreates every stored instance. It returns the number restored.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	if r == nil {
		return 0, errors.New("rules: nil registry")
	}
	configs, err := r.store.List(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, config := range configs {
		engine, err := NewEngine(config.Name, r.engineOpts...)
		if err != nil {
			r.logger.Warn().Err(err).Str("instance", config.Name).Msg("skip stored rule instance")
			continue
		}
		engine.Configure(config.Config)
		r.mu.Lock()
		r.engines[config.Name] = engine
		r.mu.Unlock()
		restored++
	}
	r.logger.Info().Int("instances", restored).Msg("rule instances restored")
	return restored, nil
}

func (r *Registry) persist(ctx context.Context, name string, doc []byte) error {
	config := rules.InstanceConfig{
		Name:      name,
		Config:    append(json.RawMessage(nil), doc...),
		UpdatedAt: r.clock.Now().UTC(),
	}
	if !json.Valid(config.Config) {
		// Stored as a JSON string so unparsable documents survive a restart
		// and still compile to an empty set.
		quoted, err := json.Marshal(string(doc))
		if err != nil {
			return err
		}
		config.Config = quoted
	}
	return r.store.Save(ctx, config)
}

func (r *Registry) audit(ctx context.Context, action, name string, report CompileReport) {
	if r.auditor == nil {
		return
	}
	var metadata json.RawMessage
	if action == audit.ActionRuleConfigure {
		metadata, _ = json.Marshal(report)
	}
	entry := audit.FromContext(ctx, action, audit.ResourceRuleInstance, name, metadata)
	entry.CreatedAt = r.clock.Now().UTC()
	if err := r.auditor.Log(ctx, entry); err != nil {
		r.logger.Warn().Err(err).Str("instance", name).Str("action", action).Msg("audit log failed")
	}
}

// StoredAt returns when the stored configuration of name was last written.
func (r *Registry) StoredAt(ctx context.Context, name string) (time.Time, error) {
	config, err := r.store.Get(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	if config == nil {
		return time.Time{}, rules.ErrNotFound
	}
	return config.UpdatedAt, nil
}
