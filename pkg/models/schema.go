package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// stageParameterSchemas holds the JSON Schema for each stage type's
// parameters bag. Stage types without an entry accept any parameters.
var stageParameterSchemas = map[StageType]map[string]any{
	StageTypeTransform: {
		"type": "object",
		"properties": map[string]any{
			"transform_type": map[string]any{
				"type": "string",
				"enum": []any{"identity", "extract_field", "filter_field", "add_field", "slice"},
			},
			"field": map[string]any{"type": "string"},
			"value": map[string]any{},
			"start": map[string]any{"type": "integer"},
			"end":   map[string]any{"type": "integer"},
		},
	},
	StageTypeFilter: {
		"type": "object",
		"properties": map[string]any{
			"field":               map[string]any{"type": "string"},
			"value":               map[string]any{},
			"value_from_variable": map[string]any{"type": "string"},
			"filter_type": map[string]any{
				"type": "string",
				"enum": []any{"include", "exclude"},
			},
		},
	},
	StageTypeMapFields: {
		"type": "object",
		"properties": map[string]any{
			"mappings": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"field_mappings": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source_field": map[string]any{"type": "string"},
						"target_field": map[string]any{"type": "string"},
						"transform":    map[string]any{"type": "string"},
						"required":     map[string]any{"type": "boolean"},
					},
					"required": []any{"source_field", "target_field"},
				},
			},
		},
		"anyOf": []any{
			map[string]any{"required": []any{"mappings"}},
			map[string]any{"required": []any{"field_mappings"}},
		},
	},
	StageTypeSetVariable: {
		"type": "object",
		"properties": map[string]any{
			"variable_name": map[string]any{"type": "string", "minLength": 1},
			"value":         map[string]any{},
		},
		"required": []any{"variable_name"},
	},
	StageTypeLog: {
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
			"level": map[string]any{
				"type": "string",
				"enum": []any{"debug", "info", "warning", "error"},
			},
		},
	},
}

// ValidateStageParameters checks a stage's parameters bag against the JSON
// Schema for its stage type.
func ValidateStageParameters(stage *Stage) error {
	schema, ok := stageParameterSchemas[stage.Type]
	if !ok {
		return nil
	}

	params := stage.Parameters
	if params == nil {
		params = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		return fmt.Errorf("stage %s: schema validation: %w", stage.ID, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return fmt.Errorf("stage %s: invalid parameters: %s", stage.ID, strings.Join(details, "; "))
}
