package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/syncline/syncline/pkg/connector"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/otelhelper"
	"github.com/syncline/syncline/pkg/transform"
)

// ExecuteStage runs one stage, honoring its retry policy. The retry loop is
// bounded at retry_count+1 attempts; each attempt re-evaluates the condition
// and re-dispatches from scratch, and only the final attempt's result is
// returned.
func (e *Engine) ExecuteStage(ctx context.Context, workflow *models.Workflow, stage *models.Stage, ec *ExecutionContext) *models.StageResult {
	logger := e.logger.With("workflow_id", workflow.ID, "stage_id", stage.ID)

	for attempt := 0; ; attempt++ {
		result := e.runStage(ctx, workflow, stage, ec, logger)
		result.RetryCount = attempt

		if result.Status != models.StageStatusFailed ||
			stage.ErrorStrategy != models.ErrorStrategyRetry ||
			attempt >= stage.RetryCount {
			return result
		}

		logger.Info("Retrying stage",
			"attempt", attempt+1,
			"max_attempts", stage.RetryCount+1,
			"retry_delay_seconds", stage.RetryDelay)

		e.sleep(time.Duration(stage.RetryDelay) * time.Second)
	}
}

func (e *Engine) runStage(ctx context.Context, workflow *models.Workflow, stage *models.Stage, ec *ExecutionContext, logger *slog.Logger) *models.StageResult {
	result := models.NewStageResult(stage.ID)
	defer result.Finish()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "stage.execute",
		attribute.String(otelhelper.StageIDKey, stage.ID),
		attribute.String(otelhelper.StageTypeKey, string(stage.Type)),
	)
	defer span.End()

	if stage.Condition != "" && !EvaluateCondition(stage.Condition, ec.Variables) {
		logger.Info("Stage condition not met, skipping", "condition", stage.Condition)
		result.Status = models.StageStatusSkipped

		return result
	}

	output, err := e.dispatch(ctx, workflow, stage, ec, logger)
	if err != nil {
		logger.Error("Stage failed", "stage_type", stage.Type, "error", err)
		otelhelper.SetError(span, err, attribute.String(otelhelper.StageIDKey, stage.ID))
		result.Status = models.StageStatusFailed
		result.ErrorMessage = err.Error()

		return result
	}

	if stage.OutputVariable != "" && output != nil {
		ec.SetVariable(stage.OutputVariable, output)
	}

	result.Status = models.StageStatusSuccess
	result.OutputData = output
	result.ItemsProcessed = countItems(output)

	return result
}

// dispatch executes the stage-type-specific behavior. A panic anywhere in a
// stage is contained here and surfaces as a stage failure, never as a
// crashed run.
func (e *Engine) dispatch(ctx context.Context, workflow *models.Workflow, stage *models.Stage, ec *ExecutionContext, logger *slog.Logger) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage.ID, r)
		}
	}()

	switch stage.Type {
	case models.StageTypeConnectorMethod:
		return e.executeConnectorMethod(ctx, workflow, stage, ec, logger)
	case models.StageTypeTransform:
		return executeTransform(stage, ec), nil
	case models.StageTypeFilter:
		return executeFilter(stage, ec), nil
	case models.StageTypeMapFields:
		return executeMapFields(stage, ec), nil
	case models.StageTypeSetVariable:
		params := stage.SetVariableParams()
		if params.VariableName != "" {
			ec.SetVariable(params.VariableName, params.Value)
		}

		return params.Value, nil
	case models.StageTypeLog:
		return e.executeLog(ctx, stage, ec), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStageType, stage.Type)
	}
}

// executeConnectorMethod resolves the bound connector and invokes the named
// operation. Call arguments merge with later-wins precedence: stage
// parameters, then input variable values, then resolved credentials.
// Credentials are injected only for argument names the operation declares,
// and undeclared arguments are dropped unless the operation accepts
// open-ended extras.
func (e *Engine) executeConnectorMethod(ctx context.Context, workflow *models.Workflow, stage *models.Stage, ec *ExecutionContext, logger *slog.Logger) (any, error) {
	if stage.Connector == "" || stage.Method == "" {
		return nil, fmt.Errorf("%w: stage %s requires connector and method", ErrStageMisconfigured, stage.ID)
	}

	conn, err := ec.Connector(stage.Connector)
	if err != nil {
		return nil, err
	}

	op, ok := conn.Operation(stage.Method)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no method %s", connector.ErrUnknownOperation, conn.ServiceType(), stage.Method)
	}

	args := make(map[string]any, len(stage.Parameters)+len(stage.InputVariables))

	for k, v := range stage.Parameters {
		args[k] = v
	}

	for _, name := range stage.InputVariables {
		if value, ok := ec.Variable(name); ok {
			args[name] = value
		} else {
			logger.Warn("Input variable not set", "variable", name)
		}
	}

	credentials, err := e.credentials.Resolve(ctx, workflow, stage)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials for stage %s: %w", stage.ID, err)
	}

	for name, value := range credentials {
		if op.Declares(name) {
			args[name] = value
		}
	}

	args = op.FilterArgs(args)

	logger.Info("Invoking connector operation",
		"connector", stage.Connector,
		"method", stage.Method,
		"args", argNames(args))

	return op.Invoke(ctx, args)
}

func executeTransform(stage *models.Stage, ec *ExecutionContext) any {
	input := firstInput(stage, ec)
	params := stage.TransformParams()

	switch params.Type {
	case models.TransformIdentity:
		return input

	case models.TransformExtractField:
		if items, ok := asList(input); ok {
			out := make([]any, 0, len(items))

			for _, item := range items {
				if m, ok := item.(map[string]any); ok {
					out = append(out, m[params.Field])
				}
			}

			return out
		}

		if m, ok := input.(map[string]any); ok {
			return m[params.Field]
		}

		return input

	case models.TransformFilterField:
		items, ok := asList(input)
		if !ok {
			return input
		}

		out := make([]any, 0, len(items))

		for _, item := range items {
			if m, ok := item.(map[string]any); ok && equalValues(m[params.Field], params.Value) {
				out = append(out, item)
			}
		}

		return out

	case models.TransformAddField:
		if items, ok := asList(input); ok {
			out := make([]any, 0, len(items))

			for _, item := range items {
				if m, ok := item.(map[string]any); ok {
					out = append(out, withField(m, params.Field, params.Value))
				} else {
					out = append(out, item)
				}
			}

			return out
		}

		if m, ok := input.(map[string]any); ok {
			return withField(m, params.Field, params.Value)
		}

		return input

	case models.TransformSlice:
		items, ok := asList(input)
		if !ok {
			return input
		}

		start, end := clampRange(params.Start, params.End, len(items))

		out := make([]any, end-start)
		copy(out, items[start:end])

		return out

	default:
		return input
	}
}

func executeFilter(stage *models.Stage, ec *ExecutionContext) any {
	input := firstInput(stage, ec)

	items, ok := asList(input)
	if !ok {
		return input
	}

	params := stage.FilterParams()
	if params.Field == "" {
		return input
	}

	if params.ValueFromVariable != "" {
		if raw, present := ec.Variable(params.ValueFromVariable); present {
			if allowed, ok := asList(raw); ok {
				return filterByMembership(items, params.Field, allowed, params.Exclude)
			}
		}
	}

	if params.Value != nil {
		out := make([]any, 0, len(items))

		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				if equalValues(m[params.Field], params.Value) != params.Exclude {
					out = append(out, item)
				}
			}
		}

		return out
	}

	return input
}

func filterByMembership(items []any, field string, values []any, exclude bool) []any {
	out := make([]any, 0, len(items))

	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if containsValue(values, m[field]) != exclude {
			out = append(out, item)
		}
	}

	return out
}

// executeMapFields supports two parameter shapes: a plain rename map under
// "mappings" (fields absent from the map keep their name), or a rich
// "field_mappings" list with per-field transforms handled by the transform
// package.
func executeMapFields(stage *models.Stage, ec *ExecutionContext) any {
	input := firstInput(stage, ec)

	if raw, ok := stage.Parameters["field_mappings"].([]any); ok {
		mappings := transform.MappingsFromWire(raw)

		if items, ok := asList(input); ok {
			out := make([]any, 0, len(items))

			for _, item := range items {
				if m, ok := item.(map[string]any); ok {
					out = append(out, transform.MapFields(m, mappings))
				}
			}

			return out
		}

		if m, ok := input.(map[string]any); ok {
			return transform.MapFields(m, mappings)
		}

		return input
	}

	renames := stage.MapFieldsParams().Mappings

	if items, ok := asList(input); ok {
		out := make([]any, 0, len(items))

		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, renameFields(m, renames))
			}
		}

		return out
	}

	if m, ok := input.(map[string]any); ok {
		return renameFields(m, renames)
	}

	return input
}

func renameFields(item map[string]any, renames map[string]string) map[string]any {
	out := make(map[string]any, len(item))

	for k, v := range item {
		if name, ok := renames[k]; ok {
			out[name] = v
		} else {
			out[k] = v
		}
	}

	return out
}

func (e *Engine) executeLog(ctx context.Context, stage *models.Stage, ec *ExecutionContext) string {
	params := stage.LogParams()
	message := FormatMessage(params.Message, ec.Variables)

	level := slog.LevelInfo

	switch params.Level {
	case "debug":
		level = slog.LevelDebug
	case "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	e.logger.Log(ctx, level, message, "workflow_id", ec.WorkflowID, "stage_id", stage.ID)

	return message
}

func clampRange(start, end, length int) (int, int) {
	if start < 0 {
		start = 0
	}

	if start > length {
		start = length
	}

	if end < 0 || end > length {
		end = length
	}

	if end < start {
		end = start
	}

	return start, end
}

func argNames(args map[string]any) []string {
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}

	return names
}
