package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageUnmarshal_Defaults(t *testing.T) {
	raw := `{"id": "read", "type": "connector_method", "connector": "source", "method": "read_inventory"}`

	var stage Stage

	require.NoError(t, json.Unmarshal([]byte(raw), &stage))

	assert.True(t, stage.Enabled, "absent enabled must default to true")
	assert.Equal(t, ErrorStrategyFail, stage.ErrorStrategy)
	assert.Equal(t, 5, stage.RetryDelay)
	assert.Equal(t, 0, stage.RetryCount)
}

func TestStageUnmarshal_ExplicitValuesWin(t *testing.T) {
	raw := `{
		"id": "write",
		"type": "connector_method",
		"enabled": false,
		"error_strategy": "retry",
		"retry_count": 3,
		"retry_delay": 0
	}`

	var stage Stage

	require.NoError(t, json.Unmarshal([]byte(raw), &stage))

	assert.False(t, stage.Enabled)
	assert.Equal(t, ErrorStrategyRetry, stage.ErrorStrategy)
	assert.Equal(t, 3, stage.RetryCount)
	assert.Equal(t, 0, stage.RetryDelay)
}

func TestStageParamViews(t *testing.T) {
	stage := NewStage("t1", StageTypeTransform)
	stage.Parameters = map[string]any{
		"transform_type": "slice",
		"start":          float64(1), // json numbers decode to float64
		"end":            float64(3),
	}

	params := stage.TransformParams()
	assert.Equal(t, TransformSlice, params.Type)
	assert.Equal(t, 1, params.Start)
	assert.Equal(t, 3, params.End)

	stage = NewStage("f1", StageTypeFilter)
	stage.Parameters = map[string]any{
		"field":               "sku",
		"value_from_variable": "allowed_skus",
	}

	filter := stage.FilterParams()
	assert.Equal(t, "sku", filter.Field)
	assert.Equal(t, "allowed_skus", filter.ValueFromVariable)

	stage = NewStage("m1", StageTypeMapFields)
	stage.Parameters = map[string]any{
		"mappings": map[string]any{"qty": "quantity_to_set"},
	}

	mapped := stage.MapFieldsParams()
	assert.Equal(t, map[string]string{"qty": "quantity_to_set"}, mapped.Mappings)

	stage = NewStage("l1", StageTypeLog)
	stage.Parameters = map[string]any{"message": "hello"}

	logParams := stage.LogParams()
	assert.Equal(t, "hello", logParams.Message)
	assert.Equal(t, "info", logParams.Level)
}

func TestWorkflowEnabledStageCount(t *testing.T) {
	disabled := NewStage("b", StageTypeLog)
	disabled.Enabled = false

	workflow := &Workflow{
		Stages: []*Stage{NewStage("a", StageTypeLog), disabled, NewStage("c", StageTypeLog)},
	}

	assert.Equal(t, 2, workflow.EnabledStageCount())
}

func TestConnectorBindingConfig(t *testing.T) {
	binding := ConnectorBinding{
		"service_type": "infiplex",
		"base_url":     "https://example.test",
		"credentials":  map[string]any{"api_key": "k"},
		"warehouse_id": float64(7),
	}

	assert.Equal(t, "infiplex", binding.ServiceType())
	assert.Equal(t, "https://example.test", binding.BaseURL())
	assert.Equal(t, map[string]any{"api_key": "k"}, binding.Credentials())
	assert.Equal(t, map[string]any{"warehouse_id": float64(7)}, binding.Config())
}

func TestValidateStageParameters(t *testing.T) {
	stage := NewStage("s1", StageTypeSetVariable)
	stage.Parameters = map[string]any{"variable_name": "x", "value": 1}
	assert.NoError(t, ValidateStageParameters(stage))

	stage.Parameters = map[string]any{"value": 1}
	assert.Error(t, ValidateStageParameters(stage))

	// connector_method parameters are free-form
	free := NewStage("s2", StageTypeConnectorMethod)
	free.Parameters = map[string]any{"anything": "goes"}
	assert.NoError(t, ValidateStageParameters(free))
}
