// Package engine executes workflows: it builds a per-run execution context,
// binds connectors, and interprets the ordered stage list into a run record.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/syncline/syncline/pkg/connector"
	"github.com/syncline/syncline/pkg/credentials"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/otelhelper"
)

// Engine drives workflow runs. One engine serves many concurrent runs; all
// per-run state lives in the ExecutionContext.
type Engine struct {
	registry    *connector.Registry
	credentials credentials.Resolver
	logger      *slog.Logger
	tracer      trace.Tracer
	sleep       func(time.Duration)
}

func New(registry *connector.Registry, resolver credentials.Resolver, logger *slog.Logger) *Engine {
	return &Engine{
		registry:    registry,
		credentials: resolver,
		logger:      logger.With("module", "engine"),
		tracer:      otel.Tracer("github.com/syncline/syncline/pkg/engine"),
		sleep:       time.Sleep,
	}
}

// WithSleep replaces the retry delay function. Tests use this to avoid
// real waits.
func (e *Engine) WithSleep(sleep func(time.Duration)) *Engine {
	e.sleep = sleep

	return e
}

// NewExecutionID generates a run identifier. Callers that need the ID
// before the run starts (e.g. to publish a started event) generate it here
// and pass it to ExecuteWithID.
func NewExecutionID(workflowID string) string {
	return fmt.Sprintf("exec_%s_%s", workflowID, uuid.New().String()[:8])
}

// Execute runs a workflow end to end and always returns an execution
// record; failures of any kind are reported through its status and error
// message, never as a returned error or panic.
func (e *Engine) Execute(ctx context.Context, workflow *models.Workflow, triggeredBy string, initialVariables map[string]any) *models.Execution {
	return e.ExecuteWithID(ctx, workflow, NewExecutionID(workflow.ID), triggeredBy, initialVariables)
}

// ExecuteWithID runs a workflow under a caller-chosen execution ID.
func (e *Engine) ExecuteWithID(ctx context.Context, workflow *models.Workflow, executionID, triggeredBy string, initialVariables map[string]any) *models.Execution {
	execution := models.NewExecution(executionID, workflow.ID, triggeredBy)
	execution.TotalStages = workflow.EnabledStageCount()

	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String("triggered_by", triggeredBy),
	)
	defer span.End()

	logger.Info("Starting workflow execution",
		"workflow_name", workflow.Name,
		"triggered_by", triggeredBy,
		"total_stages", execution.TotalStages)

	if err := e.run(ctx, workflow, initialVariables, execution, logger); err != nil {
		execution.Status = models.ExecutionStatusFailed
		execution.ErrorMessage = err.Error()
		otelhelper.SetError(span, err,
			attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		)
		logger.Error("Workflow execution failed", "error", err)
	}

	execution.Finish()

	logger.Info("Workflow execution finished",
		"status", execution.Status,
		"completed_stages", execution.CompletedStages,
		"failed_stages", execution.FailedStages,
		"skipped_stages", execution.SkippedStages,
		"duration_seconds", execution.ExecutionTimeSeconds)

	return execution
}

// run performs the stage loop. Anything escaping stage-level handling,
// connector initialization included, is caught here once and converted
// into a failed execution by the caller.
func (e *Engine) run(ctx context.Context, workflow *models.Workflow, initialVariables map[string]any, execution *models.Execution, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workflow execution panicked: %v", r)
		}
	}()

	ec := NewExecutionContext(workflow, initialVariables)

	if err := e.bindConnectors(workflow, ec, logger); err != nil {
		return err
	}

	// Single pass in declared order. A stage whose dependency appears later
	// in the list is skipped and never revisited, so authors must order
	// dependencies first.
	for _, stage := range workflow.Stages {
		if !stage.Enabled {
			logger.Debug("Skipping disabled stage", "stage_id", stage.ID)

			continue
		}

		if !ec.DependenciesMet(stage) {
			logger.Warn("Skipping stage with unmet dependencies",
				"stage_id", stage.ID,
				"depends_on", stage.DependsOn)

			continue
		}

		result := e.ExecuteStage(ctx, workflow, stage, ec)

		execution.StageResults = append(execution.StageResults, result)
		ec.StageResults = append(ec.StageResults, result)

		halt := false

		switch result.Status {
		case models.StageStatusSuccess:
			execution.CompletedStages++
		case models.StageStatusSkipped:
			execution.SkippedStages++
		case models.StageStatusFailed:
			execution.FailedStages++

			if stage.ErrorStrategy == models.ErrorStrategyFail {
				execution.Status = models.ExecutionStatusFailed
				execution.ErrorMessage = result.ErrorMessage
				halt = true

				logger.Error("Halting run after stage failure", "stage_id", stage.ID)
			}
		}

		if halt {
			break
		}
	}

	if execution.Status == models.ExecutionStatusRunning {
		execution.Status = models.ExecutionStatusCompleted
	}

	execution.FinalVariables = ec.VariablesSnapshot()

	return nil
}

// bindConnectors instantiates the workflow's source and target connectors
// into the context. Instantiation is bare: binding credentials are
// construction-time defaults, and stages inject resolved credentials per
// call. Bindings whose service type has no registered factory are skipped;
// a stage referencing them fails at dispatch instead.
func (e *Engine) bindConnectors(workflow *models.Workflow, ec *ExecutionContext, logger *slog.Logger) error {
	bindings := []struct {
		name    string
		binding models.ConnectorBinding
	}{
		{models.ConnectorSource, workflow.Source},
		{models.ConnectorTarget, workflow.Target},
	}

	for _, b := range bindings {
		if b.binding == nil {
			continue
		}

		serviceType := b.binding.ServiceType()
		if serviceType == "" {
			continue
		}

		if _, ok := e.registry.Factory(serviceType); !ok {
			logger.Debug("No connector factory for service type",
				"connector", b.name,
				"service_type", serviceType)

			continue
		}

		conn, err := e.registry.Create(serviceType, b.binding.Credentials(), b.binding.BaseURL(), b.binding.Config())
		if err != nil {
			return fmt.Errorf("initialize %s connector (%s): %w", b.name, serviceType, err)
		}

		ec.Connectors[b.name] = conn

		logger.Debug("Bound connector", "connector", b.name, "service_type", serviceType)
	}

	return nil
}
