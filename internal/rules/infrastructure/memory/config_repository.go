package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	rules "outofbound/internal/rules/domain"
)

// RuleConfigRepository keeps rule_config documents in memory. It is used when
// no database is configured and in tests.
type RuleConfigRepository struct {
	mu   sync.RWMutex
	data map[string]rules.InstanceConfig
}

// NewRuleConfigRepository constructs a repository.
func NewRuleConfigRepository() *RuleConfigRepository {
	return &RuleConfigRepository{data: make(map[string]rules.InstanceConfig)}
}

// Save inserts or replaces the document of an instance.
func (r *RuleConfigRepository) Save(ctx context.Context, config rules.InstanceConfig) error {
	_ = ctx
	if config.Name == "" {
		return rules.ErrEmptyInstance
	}
	if config.UpdatedAt.IsZero() {
		config.UpdatedAt = time.Now().UTC()
	}
	config.Config = append(json.RawMessage(nil), config.Config...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[config.Name] = config
	return nil
}

// Get loads an instance document. It returns nil when the instance is unknown.
func (r *RuleConfigRepository) Get(ctx context.Context, name string) (*rules.InstanceConfig, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.data[name]
	if !ok {
		return nil, nil
	}
	return &config, nil
}

// List returns every stored instance ordered by name.
func (r *RuleConfigRepository) List(ctx context.Context) ([]rules.InstanceConfig, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]rules.InstanceConfig, 0, len(r.data))
	for _, config := range r.data {
		out = append(out, config)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes an instance document.
func (r *RuleConfigRepository) Delete(ctx context.Context, name string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, name)
	return nil
}
