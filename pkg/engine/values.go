package engine

import (
	"reflect"

	"github.com/syncline/syncline/pkg/models"
)

// firstInput returns the value of the stage's first input variable, the
// convention for single-input data stages.
func firstInput(stage *models.Stage, ec *ExecutionContext) any {
	if len(stage.InputVariables) == 0 {
		return nil
	}

	value, _ := ec.Variable(stage.InputVariables[0])

	return value
}

// asList normalizes any slice value to []any. Connector outputs are []any
// already; variables seeded in code may carry concrete slice types.
func asList(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

// equalValues compares two values with numeric tolerance: decoded JSON
// carries float64 while values set in code are often int.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)

	if aok && bok {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	default:
		return 0, false
	}
}

func containsValue(values []any, needle any) bool {
	for _, v := range values {
		if equalValues(v, needle) {
			return true
		}
	}

	return false
}

func withField(item map[string]any, field string, value any) map[string]any {
	out := make(map[string]any, len(item)+1)
	for k, v := range item {
		out[k] = v
	}

	out[field] = value

	return out
}

// countItems returns how many items a stage produced: the length of a list
// output, or of the "items" list inside a map output.
func countItems(output any) int {
	if items, ok := asList(output); ok {
		return len(items)
	}

	if m, ok := output.(map[string]any); ok {
		if items, ok := asList(m["items"]); ok {
			return len(items)
		}
	}

	return 0
}
