package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncline/syncline/pkg/transform"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		transform string
		want      any
	}{
		{"round", 2.6, "round", 3},
		{"round_to_cents", 19.999, "round_to_cents", 20.0},
		{"uppercase", "sku-1", "uppercase", "SKU-1"},
		{"lowercase", "SKU-1", "lowercase", "sku-1"},
		{"string", 42, "string", "42"},
		{"int from string", "7.9", "int", 7},
		{"float from string", "3.5", "float", 3.5},
		{"multiply", 10, "multiply_by_1.5", 15.0},
		{"divide", 10, "divide_by_4", 2.5},
		{"add", 10, "add_2", 12.0},
		{"subtract", 10, "subtract_2.5", 7.5},
		{"no transform", "x", "", "x"},
		{"nil passes through", nil, "round", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, transform.Apply(tc.value, tc.transform))
		})
	}
}

func TestApply_FailuresFallBackToOriginal(t *testing.T) {
	// unknown transform name
	assert.Equal(t, "v", transform.Apply("v", "reverse"))

	// non-numeric value for a numeric transform
	assert.Equal(t, "not-a-number", transform.Apply("not-a-number", "round"))

	// division by zero
	assert.Equal(t, 5, transform.Apply(5, "divide_by_0"))
}

func TestMapFields(t *testing.T) {
	source := map[string]any{"available": 41.6, "sku": "a-1"}

	mappings := []transform.FieldMapping{
		{SourceField: "sku", TargetField: "sku", Transform: "uppercase", Required: true},
		{SourceField: "available", TargetField: "quantity_to_set", Transform: "round", Required: true},
		{SourceField: "missing", TargetField: "never_set", Required: true},
		{SourceField: "also_missing", TargetField: "optional_field", Required: false},
	}

	out := transform.MapFields(source, mappings)

	assert.Equal(t, "A-1", out["sku"])
	assert.Equal(t, 42, out["quantity_to_set"])

	// required + absent: dropped silently
	_, present := out["never_set"]
	assert.False(t, present)

	// optional + absent: emitted as nil after identity transform
	optional, present := out["optional_field"]
	assert.True(t, present)
	assert.Nil(t, optional)
}

func TestMapItemList_SameLength(t *testing.T) {
	items := []map[string]any{
		{"sku": "a"},
		{"sku": "b"},
		{},
	}

	mappings := []transform.FieldMapping{
		{SourceField: "sku", TargetField: "sku", Transform: "uppercase", Required: true},
	}

	out := transform.MapItemList(items, mappings)

	require.Len(t, out, len(items))
	assert.Equal(t, "A", out[0]["sku"])
	assert.Equal(t, "B", out[1]["sku"])
	assert.Empty(t, out[2])
}

func TestMappingsFromWire(t *testing.T) {
	raw := []any{
		map[string]any{"source_field": "available", "target_field": "quantity_to_set", "transform": "round"},
		map[string]any{"source_field": "sku", "target_field": "sku", "required": false},
		"garbage entry",
	}

	mappings := transform.MappingsFromWire(raw)

	require.Len(t, mappings, 2)
	assert.True(t, mappings[0].Required, "required defaults to true")
	assert.Equal(t, "round", mappings[0].Transform)
	assert.False(t, mappings[1].Required)
}
