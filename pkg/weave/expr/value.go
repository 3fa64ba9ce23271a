package expr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Resolve turns an operand into a value: quoted strings, booleans,
// null, and numbers are literals; anything else is looked up in vars
// and falls back to its own text when absent.
func Resolve(s string, vars map[string]any) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null", "nil":
		return nil
	}

	var num json.Number
	if err := json.Unmarshal([]byte(s), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	if vars != nil {
		if v, ok := vars[s]; ok {
			return v
		}
	}
	return s
}

// Truthy reports whether a value counts as true: nil is false, bools
// are themselves, empty strings and zero numbers are false, everything
// else is true.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int32:
		return val != 0
	case int64:
		return val != 0
	case float32:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// number coerces a value for numeric comparison; non-numeric values
// yield 0.
func number(v any) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return 0
	case json.Number:
		f, _ := val.Float64()
		return f
	default:
		return 0
	}
}
