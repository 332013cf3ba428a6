package application

import (
	"encoding/json"

	rules "outofbound/internal/rules/domain"
)

// Readings maps asset names to their datapoint objects.
type Readings map[string]any

// ParseReadings decodes a readings document.
func ParseReadings(doc []byte) (Readings, error) {
	root, err := decodeObject(doc)
	if err != nil {
		return nil, err
	}
	return Readings(root), nil
}

// Evaluate reports whether every asset of set is out of bounds in readings.
// An empty set never triggers. A configured asset missing from readings
// makes the result false.
func Evaluate(set *rules.TriggerSet, readings Readings) bool {
	if set.Empty() {
		return false
	}
	for _, asset := range set.Assets() {
		raw, ok := readings[asset]
		if !ok {
			return false
		}
		values, ok := raw.(map[string]any)
		if !ok {
			return false
		}
		if !evalAsset(values, set.Triggers(asset)) {
			return false
		}
	}
	return true
}

// evalAsset combines the triggers of one asset. The first trigger decides the
// policy: all must exceed, or any one exceeding is enough. When several rules
// name the same asset with different eval_all_datapoints, later flags are
// ignored and every trigger of the asset is combined under the first rule's flag.
func evalAsset(values map[string]any, triggers []rules.Trigger) bool {
	if len(triggers) == 0 {
		return false
	}
	if !triggers[0].EvalAllDatapoints() {
		for _, trigger := range triggers {
			if exceeds(trigger, values) {
				return true
			}
		}
		return false
	}
	for _, trigger := range triggers {
		if !exceeds(trigger, values) {
			return false
		}
	}
	return true
}

func exceeds(trigger rules.Trigger, values map[string]any) bool {
	value, ok := values[trigger.Datapoint()]
	if !ok {
		return false
	}
	if items, ok := value.([]any); ok {
		for _, item := range items {
			if exceedsValue(trigger, item) {
				return true
			}
		}
		return false
	}
	return exceedsValue(trigger, value)
}

func exceedsValue(trigger rules.Trigger, value any) bool {
	kind, number := valueKind(value)
	switch kind {
	case rules.KindFloat:
		return trigger.Exceeds(number)
	default:
		return false
	}
}

// valueKind classifies a reading value. Numeric strings are strings.
func valueKind(value any) (rules.ValueKind, float64) {
	if number, ok := toFloat64(value); ok {
		return rules.KindFloat, number
	}
	if _, ok := value.(string); ok {
		return rules.KindString, 0
	}
	return rules.KindOther, 0
}

// toFloat64 converts JSON and Go numeric values to float64.
func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
