package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a missing rule instance.
	ErrNotFound = errors.New("rules: instance not found")
	// ErrEmptyInstance indicates a missing instance name.
	ErrEmptyInstance = errors.New("rules: empty instance name")
	// ErrEmptyDatapoint indicates a trigger without a datapoint name.
	ErrEmptyDatapoint = errors.New("rules: empty datapoint name")
)

// ConfigError describes a rule_config entry that was skipped during compilation.
type ConfigError struct {
	Rule   int    `json:"rule"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("rule %d: %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("rule %d: %s: %s", e.Rule, e.Field, e.Reason)
}
