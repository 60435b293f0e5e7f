// Package transform maps item fields between service shapes and applies
// named scalar transforms. Transforms never abort an item: unknown names
// and conversion failures fall back to the untransformed value.
package transform

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// FieldMapping configures one source→target field projection.
type FieldMapping struct {
	SourceField string `json:"source_field"`
	TargetField string `json:"target_field"`
	Transform   string `json:"transform,omitempty"`
	Required    bool   `json:"required"`
}

// Apply applies a named scalar transform to a value. A nil value or empty
// transform name passes through. Unknown transform names and conversion
// failures log a warning and return the original value.
func Apply(value any, transform string) any {
	if transform == "" || value == nil {
		return value
	}

	out, err := apply(value, transform)
	if err != nil {
		slog.Warn("Transform failed, keeping original value",
			"transform", transform, "error", err)

		return value
	}

	return out
}

func apply(value any, transform string) (any, error) {
	switch {
	case transform == "round":
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}

		return int(math.Round(f)), nil

	case transform == "round_to_cents":
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}

		return math.Round(f*100) / 100, nil

	case transform == "uppercase":
		return strings.ToUpper(toString(value)), nil

	case transform == "lowercase":
		return strings.ToLower(toString(value)), nil

	case transform == "string":
		return toString(value), nil

	case transform == "int":
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}

		return int(f), nil

	case transform == "float":
		return toFloat(value)

	case strings.HasPrefix(transform, "multiply_by_"):
		return arithmetic(value, strings.TrimPrefix(transform, "multiply_by_"),
			func(a, b float64) float64 { return a * b })

	case strings.HasPrefix(transform, "divide_by_"):
		divisor, err := strconv.ParseFloat(strings.TrimPrefix(transform, "divide_by_"), 64)
		if err != nil {
			return nil, err
		}

		if divisor == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}

		return f / divisor, nil

	case strings.HasPrefix(transform, "add_"):
		return arithmetic(value, strings.TrimPrefix(transform, "add_"),
			func(a, b float64) float64 { return a + b })

	case strings.HasPrefix(transform, "subtract_"):
		return arithmetic(value, strings.TrimPrefix(transform, "subtract_"),
			func(a, b float64) float64 { return a - b })

	default:
		return nil, fmt.Errorf("unknown transform: %s", transform)
	}
}

// MapFields projects one item into the target shape. A missing required
// source field drops that target field with a warning instead of failing.
func MapFields(source map[string]any, mappings []FieldMapping) map[string]any {
	target := make(map[string]any)

	for _, mapping := range mappings {
		if mapping.SourceField == "" || mapping.TargetField == "" {
			slog.Warn("Invalid field mapping",
				"source_field", mapping.SourceField, "target_field", mapping.TargetField)

			continue
		}

		value, present := source[mapping.SourceField]
		if mapping.Required && (!present || value == nil) {
			slog.Warn("Required field not found in source data", "field", mapping.SourceField)

			continue
		}

		target[mapping.TargetField] = Apply(value, mapping.Transform)
	}

	return target
}

// MapItemList maps every item independently, index for index. The output
// always has the same length as the input.
func MapItemList(items []map[string]any, mappings []FieldMapping) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, item := range items {
		out[i] = MapFields(item, mappings)
	}

	return out
}

// MappingsFromWire decodes the []map wire form of field mappings.
func MappingsFromWire(raw []any) []FieldMapping {
	mappings := make([]FieldMapping, 0, len(raw))

	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		mapping := FieldMapping{Required: true}
		mapping.SourceField, _ = m["source_field"].(string)
		mapping.TargetField, _ = m["target_field"].(string)
		mapping.Transform, _ = m["transform"].(string)

		if required, ok := m["required"].(bool); ok {
			mapping.Required = required
		}

		mappings = append(mappings, mapping)
	}

	return mappings
}

func arithmetic(value any, operand string, op func(a, b float64) float64) (any, error) {
	b, err := strconv.ParseFloat(operand, 64)
	if err != nil {
		return nil, err
	}

	a, err := toFloat(value)
	if err != nil {
		return nil, err
	}

	return op(a, b), nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case bool:
		if v {
			return 1, nil
		}

		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
