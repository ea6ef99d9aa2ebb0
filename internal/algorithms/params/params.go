// Package params reads typed values out of the loosely typed parameter
// maps algorithms receive from configuration files and CLI flags.
package params

import (
	"fmt"
	"math"
)

// Float returns params[key] as float64, accepting any numeric type.
func Float(params map[string]interface{}, key string, defaultValue float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return defaultValue
	}
}

// Int returns params[key] as int. Whole floats are accepted since YAML
// and JSON decoders may produce them.
func Int(params map[string]interface{}, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	}
	return defaultValue
}

func Bool(params map[string]interface{}, key string, defaultValue bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}

// CheckType reports a value whose type does not match the parameter kind.
// Absent keys are accepted.
func CheckType(params map[string]interface{}, key string, kind string) error {
	v, ok := params[key]
	if !ok {
		return nil
	}

	valid := false
	switch kind {
	case "float":
		switch v.(type) {
		case float64, float32, int, int64:
			valid = true
		}
	case "int":
		switch n := v.(type) {
		case int, int64:
			valid = true
		case float64:
			valid = n == math.Trunc(n)
		}
	case "bool":
		_, valid = v.(bool)
	}

	if !valid {
		return fmt.Errorf("%s must be a %s, got %T", key, kind, v)
	}
	return nil
}

// Copy returns a shallow copy of params.
func Copy(params map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(params))
	for k, v := range params {
		result[k] = v
	}
	return result
}
