package engine

import (
	"reflect"
	"strings"
)

// EvaluateCondition evaluates a stage condition against the variable store.
// The only supported predicate is "exists:<name>", true when the variable is
// set and truthy. Unrecognized conditions evaluate true so a typo never
// silently disables a stage.
func EvaluateCondition(condition string, variables map[string]any) bool {
	if name, ok := strings.CutPrefix(condition, "exists:"); ok {
		value, present := variables[name]

		return present && truthy(value)
	}

	return true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	default:
		return true
	}
}
