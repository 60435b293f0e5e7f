package models

import "encoding/json"

// StageType identifies what a stage does.
type StageType string

const (
	StageTypeConnectorMethod StageType = "connector_method"
	StageTypeTransform       StageType = "transform"
	StageTypeFilter          StageType = "filter"
	StageTypeMapFields       StageType = "map_fields"
	StageTypeSetVariable     StageType = "set_variable"
	StageTypeLog             StageType = "log"
	// Reserved in the wire format, not interpreted.
	StageTypeCondition StageType = "condition"
	StageTypeLoop      StageType = "loop"
)

// ErrorStrategy governs what happens when a stage fails.
type ErrorStrategy string

const (
	ErrorStrategyFail     ErrorStrategy = "fail"
	ErrorStrategySkip     ErrorStrategy = "skip"
	ErrorStrategyContinue ErrorStrategy = "continue"
	ErrorStrategyRetry    ErrorStrategy = "retry"
)

const defaultRetryDelaySeconds = 5

// Stage is one declarative step of a workflow. The JSON shape is the
// persisted wire format; absent fields keep the defaults the original
// documents were written against (enabled=true, error_strategy=fail,
// retry_delay=5).
type Stage struct {
	ID          string `json:"id"   validate:"required"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	Type    StageType `json:"type" validate:"required"`
	Enabled bool      `json:"enabled"`

	// Connector and Method are meaningful only for connector_method stages.
	Connector string `json:"connector,omitempty"`
	Method    string `json:"method,omitempty"`

	// CredentialsKey selects a named credential set from the workflow's
	// credentials_config for this stage's connector call.
	CredentialsKey string `json:"credentials_key,omitempty"`

	Parameters     map[string]any `json:"parameters,omitempty"`
	InputVariables []string       `json:"input_variables,omitempty"`
	OutputVariable string         `json:"output_variable,omitempty"`

	DependsOn []string `json:"depends_on,omitempty"`
	Condition string   `json:"condition,omitempty"`

	ErrorStrategy ErrorStrategy `json:"error_strategy,omitempty"`
	RetryCount    int           `json:"retry_count,omitempty"`
	RetryDelay    int           `json:"retry_delay,omitempty"`
}

// UnmarshalJSON applies the wire-format defaults for fields whose zero value
// differs from the documented default.
func (s *Stage) UnmarshalJSON(data []byte) error {
	type stageAlias Stage

	aux := struct {
		Enabled    *bool `json:"enabled"`
		RetryDelay *int  `json:"retry_delay"`
		*stageAlias
	}{
		stageAlias: (*stageAlias)(s),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.Enabled == nil {
		s.Enabled = true
	} else {
		s.Enabled = *aux.Enabled
	}

	if aux.RetryDelay == nil {
		s.RetryDelay = defaultRetryDelaySeconds
	} else {
		s.RetryDelay = *aux.RetryDelay
	}

	if s.ErrorStrategy == "" {
		s.ErrorStrategy = ErrorStrategyFail
	}

	return nil
}

// NewStage returns a stage with wire-format defaults applied, for workflows
// built in code rather than decoded from JSON.
func NewStage(id string, stageType StageType) *Stage {
	return &Stage{
		ID:            id,
		Type:          stageType,
		Enabled:       true,
		ErrorStrategy: ErrorStrategyFail,
		RetryDelay:    defaultRetryDelaySeconds,
	}
}

// Typed views over the free-form parameters map. The wire format stays a
// map for compatibility; these decode the per-stage-type shape at execution
// time.

// TransformType identifies a transform stage sub-behavior.
type TransformType string

const (
	TransformIdentity     TransformType = "identity"
	TransformExtractField TransformType = "extract_field"
	TransformFilterField  TransformType = "filter_field"
	TransformAddField     TransformType = "add_field"
	TransformSlice        TransformType = "slice"
)

// TransformParams is the parameter shape of a transform stage.
type TransformParams struct {
	Type  TransformType
	Field string
	Value any
	Start int
	End   int
}

// FilterParams is the parameter shape of a filter stage. Exclude inverts
// the membership test (filter_type "exclude"), used to drop items already
// present on the target side.
type FilterParams struct {
	Field             string
	Value             any
	ValueFromVariable string
	Exclude           bool
}

// MapFieldsParams is the parameter shape of a map_fields stage.
type MapFieldsParams struct {
	Mappings map[string]string
}

// SetVariableParams is the parameter shape of a set_variable stage.
type SetVariableParams struct {
	VariableName string
	Value        any
}

// LogParams is the parameter shape of a log stage.
type LogParams struct {
	Message string
	Level   string
}

func (s *Stage) TransformParams() TransformParams {
	p := TransformParams{Type: TransformIdentity, End: -1}

	if t, ok := s.Parameters["transform_type"].(string); ok && t != "" {
		p.Type = TransformType(t)
	}

	p.Field, _ = s.Parameters["field"].(string)
	p.Value = s.Parameters["value"]
	p.Start = intParam(s.Parameters, "start", 0)
	p.End = intParam(s.Parameters, "end", -1)

	return p
}

func (s *Stage) FilterParams() FilterParams {
	p := FilterParams{Value: s.Parameters["value"]}

	p.Field, _ = s.Parameters["field"].(string)
	p.ValueFromVariable, _ = s.Parameters["value_from_variable"].(string)

	if mode, ok := s.Parameters["filter_type"].(string); ok {
		p.Exclude = mode == "exclude"
	}

	return p
}

func (s *Stage) MapFieldsParams() MapFieldsParams {
	p := MapFieldsParams{Mappings: make(map[string]string)}

	if raw, ok := s.Parameters["mappings"].(map[string]any); ok {
		for from, to := range raw {
			if name, ok := to.(string); ok {
				p.Mappings[from] = name
			}
		}
	}

	return p
}

func (s *Stage) SetVariableParams() SetVariableParams {
	p := SetVariableParams{Value: s.Parameters["value"]}

	p.VariableName, _ = s.Parameters["variable_name"].(string)

	return p
}

func (s *Stage) LogParams() LogParams {
	p := LogParams{Level: "info"}

	p.Message, _ = s.Parameters["message"].(string)

	if level, ok := s.Parameters["level"].(string); ok && level != "" {
		p.Level = level
	}

	return p
}

// intParam reads an integer parameter tolerating the float64 that
// encoding/json produces for numbers.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
