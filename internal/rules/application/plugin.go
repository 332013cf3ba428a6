package application

import "encoding/json"

const (
	RuleName         = "OutOfBound"
	RuleType         = "notificationRule"
	InterfaceVersion = "1.0.0"
)

// Version is the rule version reported to hosts. Overridden at link time.
var Version = "1.0.0"

// Info describes the rule to a host.
type Info struct {
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	Flags     int             `json:"flags"`
	Type      string          `json:"type"`
	Interface string          `json:"interface"`
	Config    json.RawMessage `json:"config"`
}

// PluginInfo returns the rule descriptor with its default configuration.
func PluginInfo() Info {
	return Info{
		Name:      RuleName,
		Version:   Version,
		Type:      RuleType,
		Interface: InterfaceVersion,
		Config:    json.RawMessage(defaultConfig()),
	}
}

// DefaultRuleConfig is the rule_config template offered to operators. Its
// asset and datapoint names are empty, so it compiles to no triggers.
func DefaultRuleConfig() []byte {
	return []byte(defaultRuleConfig)
}

func defaultConfig() []byte {
	config := map[string]any{
		"plugin": map[string]any{
			"description": "Generate a notification if the values of one or all the configured assets exceeds a configured value",
			"type":        "string",
			"default":     RuleName,
			"readonly":    "true",
		},
		"description": map[string]any{
			"description": "Generate a notification if the values of one or all the configured assets exceeds a configured value",
			"type":        "string",
			"default":     "Generate a notification if all configured assets trigger",
			"displayName": "Rule",
			"readonly":    "true",
		},
		"rule_config": map[string]any{
			"description": "The array of rules",
			"type":        "JSON",
			"default":     defaultRuleConfig,
			"displayName": "Configuration",
			"order":       "1",
		},
	}
	data, _ := json.Marshal(config)
	return data
}

const defaultRuleConfig = `{
	"rules": [
		{
			"asset": {
				"name": "",
				"description": "The asset name for which notifications will be generated."
			},
			"eval_all_datapoints": "true",
			"datapoints": [
				{
					"name": "",
					"type": "float",
					"trigger_value": 0.0
				}
			],
			"evaluation_data": {
				"description": "The rule evaluation data: single item or window",
				"type": "enumeration",
				"options": ["Single Item", "Window"],
				"value": "Single Item"
			},
			"window_data": {
				"description": "Rule evaluation type",
				"type": "enumeration",
				"options": ["All", "Maximum", "Minimum", "Average"],
				"value": "Average"
			},
			"time_window": {
				"description": "Duration of the time window, in seconds, for collecting data points",
				"type": "integer",
				"value": 30
			}
		}
	]
}`
