package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rules "outofbound/internal/rules/domain"
)

func TestRuleConfigRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleConfigRepository()

	require.NoError(t, repo.Save(ctx, rules.InstanceConfig{Name: "zeta", Config: json.RawMessage(`{"rules":[]}`)}))
	require.NoError(t, repo.Save(ctx, rules.InstanceConfig{Name: "alpha", Config: json.RawMessage(`{"rules":[]}`)}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.False(t, list[0].UpdatedAt.IsZero())

	got, err := repo.Get(ctx, "zeta")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"rules":[]}`, string(got.Config))

	require.NoError(t, repo.Delete(ctx, "zeta"))
	got, err = repo.Get(ctx, "zeta")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRuleConfigRepository_CopiesDocument(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleConfigRepository()
	doc := []byte(`{"rules":[]}`)
	require.NoError(t, repo.Save(ctx, rules.InstanceConfig{Name: "a", Config: doc}))
	doc[2] = 'X'

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"rules":[]}`, string(got.Config))
}

func TestRuleConfigRepository_RejectsEmptyName(t *testing.T) {
	err := NewRuleConfigRepository().Save(context.Background(), rules.InstanceConfig{})
	assert.True(t, errors.Is(err, rules.ErrEmptyInstance))
}
