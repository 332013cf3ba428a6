package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	rules "outofbound/internal/rules/domain"
)

const (
	// DefaultWindowSeconds is the window length used when a statistic is declared without an interval.
	DefaultWindowSeconds = 30
	// MaxWindowSeconds bounds declared intervals.
	MaxWindowSeconds = math.MaxUint32
)

// CompileReport describes how a rule_config document was compiled.
type CompileReport struct {
	ParseError string              `json:"parse_error,omitempty"`
	Rules      int                 `json:"rules"`
	Compiled   int                 `json:"compiled"`
	Triggers   int                 `json:"triggers"`
	Issues     []rules.ConfigError `json:"issues,omitempty"`
}

// OK reports whether the document parsed.
func (r CompileReport) OK() bool {
	return r.ParseError == ""
}

func (r *CompileReport) skip(rule int, field, reason string) {
	r.Issues = append(r.Issues, rules.ConfigError{Rule: rule, Field: field, Reason: reason})
}

// Compile builds a trigger set from a rule_config document. It never fails:
// an unparsable document yields an empty set, malformed rules are skipped and
// recorded in the report.
func Compile(doc []byte) (*rules.TriggerSet, CompileReport) {
	set := rules.NewTriggerSet()
	var report CompileReport

	root, err := decodeObject(doc)
	if err != nil {
		report.ParseError = err.Error()
		return set, report
	}
	list, ok := root["rules"].([]any)
	if !ok {
		report.ParseError = "rules: missing rules array"
		return set, report
	}
	report.Rules = len(list)
	for i, raw := range list {
		if added := compileRule(set, i, raw, &report); added > 0 {
			report.Compiled++
			report.Triggers += added
		}
	}
	return set, report
}

func compileRule(set *rules.TriggerSet, index int, raw any, report *CompileReport) int {
	rule, ok := raw.(map[string]any)
	if !ok {
		report.skip(index, "", "rule is not an object")
		return 0
	}
	assetRaw, hasAsset := rule["asset"]
	pointsRaw, hasPoints := rule["datapoints"]
	if !hasAsset || !hasPoints {
		report.skip(index, "", "asset and datapoints are required")
		return 0
	}
	asset, ok := assetRaw.(map[string]any)
	if !ok {
		report.skip(index, "asset", "not an object")
		return 0
	}
	name, _ := asset["name"].(string)
	if name == "" {
		report.skip(index, "asset.name", "missing or empty")
		return 0
	}
	points, ok := pointsRaw.([]any)
	if !ok {
		report.skip(index, "datapoints", "not an array")
		return 0
	}

	aggregation, window := parseEvaluation(rule, index, report)
	evalAll := parseBool(rule["eval_all_datapoints"], true)

	added := 0
	named := false
	for j, item := range points {
		point, ok := item.(map[string]any)
		if !ok {
			continue
		}
		datapoint, ok := point["name"].(string)
		if !ok {
			continue
		}
		named = true
		field := fmt.Sprintf("datapoints[%d]", j)
		if datapoint == "" {
			report.skip(index, field+".name", "empty")
			continue
		}
		limit, ok := toFloat64(point["trigger_value"])
		if !ok {
			report.skip(index, field+".trigger_value", "missing or not numeric")
			continue
		}
		trigger, err := rules.NewTrigger(rules.TriggerSpec{
			Datapoint:         datapoint,
			Limit:             limit,
			Aggregation:       aggregation,
			Window:            window,
			EvalAllDatapoints: evalAll,
		})
		if err != nil {
			report.skip(index, field, err.Error())
			continue
		}
		set.Add(name, trigger)
		added++
	}
	if !named {
		report.skip(index, "datapoints", "no named datapoints")
	}
	return added
}

// parseEvaluation reads evaluation_data/window_data, falling back to the
// legacy evaluation_type field.
func parseEvaluation(rule map[string]any, index int, report *CompileReport) (rules.Aggregation, rules.Window) {
	if raw, ok := rule["evaluation_data"]; ok {
		if !strings.EqualFold(strings.TrimSpace(enumValue(raw)), "window") {
			return rules.AggregationSingleItem, rules.Window{}
		}
		var window rules.Window
		if stat, ok := rules.ParseWindowStatistic(enumValue(rule["window_data"])); ok {
			window = rules.Window{Statistic: stat, Seconds: parseInterval(rule, index, report)}
		}
		return rules.AggregationWindow, window
	}

	raw, ok := rule["evaluation_type"]
	if !ok {
		return rules.AggregationSingleItem, rules.Window{}
	}
	var stat rules.WindowStatistic
	switch value := strings.ToLower(strings.TrimSpace(enumValue(raw))); value {
	case "", "single item", "latest":
		return rules.AggregationSingleItem, rules.Window{}
	case "window":
		stat = rules.StatisticAll
	default:
		parsed, ok := rules.ParseWindowStatistic(value)
		if !ok {
			return rules.AggregationSingleItem, rules.Window{}
		}
		stat = parsed
	}
	return rules.AggregationWindow, rules.Window{Statistic: stat, Seconds: parseInterval(rule, index, report)}
}

// parseInterval reads time_interval, then time_window. Values outside
// [0, MaxWindowSeconds] are reported and replaced by the default.
func parseInterval(rule map[string]any, index int, report *CompileReport) uint {
	for _, key := range []string{"time_interval", "time_window"} {
		raw, ok := rule[key]
		if !ok {
			continue
		}
		if wrapped, ok := raw.(map[string]any); ok {
			raw = wrapped["value"]
		}
		if text, ok := raw.(string); ok {
			raw = json.Number(strings.TrimSpace(text))
		}
		seconds, ok := toFloat64(raw)
		if !ok {
			continue
		}
		if seconds < 0 || seconds > MaxWindowSeconds || math.IsNaN(seconds) {
			report.skip(index, key, "out of range, default interval used")
			return DefaultWindowSeconds
		}
		return uint(seconds)
	}
	return DefaultWindowSeconds
}

// enumValue accepts either a bare string or an object carrying "value" or "default".
func enumValue(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		if value, ok := v["value"].(string); ok {
			return value
		}
		if value, ok := v["default"].(string); ok {
			return value
		}
	}
	return ""
}

func parseBool(raw any, fallback bool) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

// decodeObject parses doc as a single JSON object, keeping numbers as json.Number.
func decodeObject(doc []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.New("rules: document is not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("rules: trailing data after document")
	}
	return root, nil
}
