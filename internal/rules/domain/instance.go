package rules

import (
	"encoding/json"
	"time"
)

// InstanceConfig is the persisted rule_config document of a rule instance.
type InstanceConfig struct {
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"rule_config"`
	UpdatedAt time.Time       `json:"updated_at"`
}
