package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	rules "outofbound/internal/rules/domain"
)

// RuleConfigRepository stores rule_config documents in rule_instances.
type RuleConfigRepository struct {
	db *sql.DB
}

// NewRuleConfigRepository constructs a repository.
func NewRuleConfigRepository(db *sql.DB) *RuleConfigRepository {
	return &RuleConfigRepository{db: db}
}

// Save inserts or replaces the document of an instance.
func (r *RuleConfigRepository) Save(ctx context.Context, config rules.InstanceConfig) error {
	if r == nil || r.db == nil {
		return errors.New("rule config repo: nil db")
	}
	if config.Name == "" {
		return rules.ErrEmptyInstance
	}
	if config.UpdatedAt.IsZero() {
		config.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO rule_instances (name, rule_config, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (name)
DO UPDATE SET
	rule_config = EXCLUDED.rule_config,
	updated_at = EXCLUDED.updated_at`,
		config.Name,
		[]byte(config.Config),
		config.UpdatedAt,
	)
	return err
}

// Get loads an instance document. It returns nil when the instance is unknown.
func (r *RuleConfigRepository) Get(ctx context.Context, name string) (*rules.InstanceConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule config repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT name, rule_config, updated_at
FROM rule_instances
WHERE name = $1`, name)
	config, err := scanConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return config, nil
}

// List returns every stored instance ordered by name.
func (r *RuleConfigRepository) List(ctx context.Context) ([]rules.InstanceConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule config repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT name, rule_config, updated_at
FROM rule_instances
ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rules.InstanceConfig
	for rows.Next() {
		config, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *config)
	}
	return out, rows.Err()
}

// Delete removes an instance document.
func (r *RuleConfigRepository) Delete(ctx context.Context, name string) error {
	if r == nil || r.db == nil {
		return errors.New("rule config repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM rule_instances WHERE name = $1`, name)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(row scanner) (*rules.InstanceConfig, error) {
	var config rules.InstanceConfig
	var raw []byte
	if err := row.Scan(&config.Name, &raw, &config.UpdatedAt); err != nil {
		return nil, err
	}
	config.Config = raw
	config.UpdatedAt = config.UpdatedAt.UTC()
	return &config, nil
}
