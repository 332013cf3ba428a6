package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rules "outofbound/internal/rules/domain"
	"outofbound/internal/rules/infrastructure/postgres"
)

func TestRuleConfigRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	var exists bool
	require.NoError(t, db.QueryRow(`SELECT to_regclass('public.rule_instances') IS NOT NULL`).Scan(&exists))
	if !exists {
		t.Skip("missing rule_instances; run migrations")
	}

	ctx := context.Background()
	repo := postgres.NewRuleConfigRepository(db)
	name := "it-outofbound"
	_ = repo.Delete(ctx, name)
	t.Cleanup(func() { _ = repo.Delete(ctx, name) })

	first := json.RawMessage(`{"rules":[]}`)
	require.NoError(t, repo.Save(ctx, rules.InstanceConfig{Name: name, Config: first, UpdatedAt: time.Now().UTC()}))

	second := json.RawMessage(`{"rules":[{"asset":{"name":"flow"},"datapoints":[{"name":"random","trigger_value":100}]}]}`)
	require.NoError(t, repo.Save(ctx, rules.InstanceConfig{Name: name, Config: second}))

	loaded, err := repo.Get(ctx, name)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.JSONEq(t, string(second), string(loaded.Config))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	found := false
	for _, config := range list {
		if config.Name == name {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, repo.Delete(ctx, name))
	missing, err := repo.Get(ctx, name)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRuleConfigRepository_NilDB(t *testing.T) {
	repo := postgres.NewRuleConfigRepository(nil)
	assert.Error(t, repo.Save(context.Background(), rules.InstanceConfig{Name: "x"}))
	_, err := repo.List(context.Background())
	assert.Error(t, err)
}
