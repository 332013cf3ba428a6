package application

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRuleConfigFile reads a rule_config document from a JSON or YAML file
// and returns it as JSON.
func LoadRuleConfigFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	case ".json":
		if !json.Valid(data) {
			return nil, fmt.Errorf("failed to parse JSON rule config: %s", filename)
		}
		return data, nil
	default:
		if json.Valid(data) {
			return data, nil
		}
		out, err := yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rule config (unknown format): %w", err)
		}
		return out, nil
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rule config: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("failed to parse YAML rule config: empty document")
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML rule config: %w", err)
	}
	return out, nil
}
