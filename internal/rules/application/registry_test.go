package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outofbound/internal/audit"
	"outofbound/internal/auth"
	rules "outofbound/internal/rules/domain"
	"outofbound/internal/rules/infrastructure/memory"
)

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Log(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

type failingStore struct {
	*memory.RuleConfigRepository
}

func (failingStore) Save(context.Context, rules.InstanceConfig) error {
	return errors.New("disk full")
}

func TestNewRegistry_RequiresStore(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)
}

func TestRegistry_InitGetShutdown(t *testing.T) {
	ctx := auth.WithIdentity(context.Background(), auth.Identity{Subject: "user-1", Role: auth.RoleAdmin})
	store := memory.NewRuleConfigRepository()
	auditor := &recordingAuditor{}
	registry, err := NewRegistry(store, WithAuditLogger(auditor))
	require.NoError(t, err)

	engine, report, err := registry.Init(ctx, "flow-alarm", []byte(flowConfig))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Triggers)
	assert.Equal(t, "flow-alarm", engine.Name())

	got, err := registry.Get("flow-alarm")
	require.NoError(t, err)
	assert.Same(t, engine, got)
	assert.Equal(t, []string{"flow-alarm"}, registry.Names())

	stored, err := store.Get(ctx, "flow-alarm")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.JSONEq(t, flowConfig, string(stored.Config))

	require.NoError(t, registry.Shutdown(ctx, "flow-alarm"))
	_, err = registry.Get("flow-alarm")
	assert.ErrorIs(t, err, rules.ErrNotFound)
	stored, err = store.Get(ctx, "flow-alarm")
	require.NoError(t, err)
	assert.Nil(t, stored)

	require.Len(t, auditor.entries, 2)
	assert.Equal(t, audit.ActionRuleConfigure, auditor.entries[0].Action)
	assert.Equal(t, "user-1", auditor.entries[0].Actor)
	assert.Equal(t, audit.ActionRuleShutdown, auditor.entries[1].Action)
}

func TestRegistry_InitTwiceReconfigures(t *testing.T) {
	registry, err := NewRegistry(memory.NewRuleConfigRepository())
	require.NoError(t, err)
	ctx := context.Background()

	first, _, err := registry.Init(ctx, "a", []byte(twoAssetConfig))
	require.NoError(t, err)
	second, _, err := registry.Init(ctx, "a", []byte(flowConfig))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"flow"}, second.Snapshot().Assets())
}

func TestRegistry_ReconfigureUnknown(t *testing.T) {
	registry, err := NewRegistry(memory.NewRuleConfigRepository())
	require.NoError(t, err)
	_, err = registry.Reconfigure(context.Background(), "missing", []byte(flowConfig))
	assert.ErrorIs(t, err, rules.ErrNotFound)
	assert.ErrorIs(t, registry.Shutdown(context.Background(), "missing"), rules.ErrNotFound)
}

func TestRegistry_SaveFailureLeavesEngineUntouched(t *testing.T) {
	registry, err := NewRegistry(failingStore{memory.NewRuleConfigRepository()})
	require.NoError(t, err)
	_, _, err = registry.Init(context.Background(), "a", []byte(flowConfig))
	assert.Error(t, err)
	assert.Empty(t, registry.Names())
}

func TestRegistry_EvaluateAll(t *testing.T) {
	registry, err := NewRegistry(memory.NewRuleConfigRepository())
	require.NoError(t, err)
	ctx := context.Background()
	_, _, err = registry.Init(ctx, "flow-only", []byte(flowConfig))
	require.NoError(t, err)
	_, _, err = registry.Init(ctx, "flow-and-temp", []byte(twoAssetConfig))
	require.NoError(t, err)

	results, err := registry.EvaluateAll([]byte(`{"flow": {"random": 101.3}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"flow-only": true, "flow-and-temp": false}, results)

	_, err = registry.EvaluateAll([]byte(`{"flow":`))
	assert.Error(t, err)
	engine, err := registry.Get("flow-only")
	require.NoError(t, err)
	assert.Equal(t, rules.StateTriggered, engine.State())
}

func TestRegistry_Restore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRuleConfigRepository()
	first, err := NewRegistry(store)
	require.NoError(t, err)
	_, _, err = first.Init(ctx, "flow-only", []byte(flowConfig))
	require.NoError(t, err)
	_, _, err = first.Init(ctx, "broken", []byte(`{"rules": [`))
	require.NoError(t, err)

	second, err := NewRegistry(store)
	require.NoError(t, err)
	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.Equal(t, []string{"broken", "flow-only"}, second.Names())

	broken, err := second.Get("broken")
	require.NoError(t, err)
	assert.True(t, broken.Snapshot().Empty())

	flow, err := second.Get("flow-only")
	require.NoError(t, err)
	assert.True(t, flow.Evaluate([]byte(`{"flow": {"random": 101.3}}`)))

	at, err := second.StoredAt(ctx, "flow-only")
	require.NoError(t, err)
	assert.False(t, at.IsZero())
}
