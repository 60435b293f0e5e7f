package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syncline/syncline/pkg/engine"
	"github.com/syncline/syncline/pkg/eventbus"
	"github.com/syncline/syncline/pkg/events"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence"
)

// Execution runs workflows and records the results.
type Execution struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	bus         eventbus.EventPublisher
	logger      *slog.Logger
}

// NewExecution creates the execution service. The event publisher may be
// nil; run lifecycle events are then not emitted.
func NewExecution(p persistence.Persistence, eng *engine.Engine, bus eventbus.EventPublisher, logger *slog.Logger) *Execution {
	return &Execution{
		persistence: p,
		engine:      eng,
		bus:         bus,
		logger:      logger.With("module", "execution_service"),
	}
}

// Execute loads a workflow, runs it and persists the resulting execution
// record. The record is returned even when the run failed; the returned
// error reports service-level problems only (unknown workflow, storage).
func (s *Execution) Execute(ctx context.Context, workflowID, triggeredBy string, initialVariables map[string]any) (*models.Execution, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	if workflow == nil {
		return nil, persistence.NewWorkflowError("Execute", workflowID, ErrWorkflowNotFound)
	}

	executionID := engine.NewExecutionID(workflow.ID)

	s.publishStarted(ctx, workflow, executionID, triggeredBy)

	execution := s.engine.ExecuteWithID(ctx, workflow, executionID, triggeredBy, initialVariables)

	if err := s.persistence.ExecutionRepository().Save(ctx, execution); err != nil {
		return execution, fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	s.publishFinished(ctx, execution)

	return execution, nil
}

// Get returns one execution record.
func (s *Execution) Get(ctx context.Context, id string) (*models.Execution, error) {
	return s.persistence.ExecutionRepository().GetByID(ctx, id)
}

// ListByWorkflow returns all runs of one workflow, newest first.
func (s *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	return s.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
}

func (s *Execution) publishStarted(ctx context.Context, workflow *models.Workflow, executionID, triggeredBy string) {
	if s.bus == nil {
		return
	}

	event := events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID: executionID,
		TriggeredBy: triggeredBy,
	}

	if err := s.bus.Publish(ctx, workflow.ID, event); err != nil {
		s.logger.Warn("Failed to publish execution started event",
			"workflow_id", workflow.ID, "execution_id", executionID, "error", err)
	}
}

func (s *Execution) publishFinished(ctx context.Context, execution *models.Execution) {
	if s.bus == nil {
		return
	}

	event := events.ExecutionFinished{
		BaseEvent:       events.NewBaseEvent(events.ExecutionFinishedEvent, execution.WorkflowID),
		ExecutionID:     execution.ID,
		Status:          string(execution.Status),
		CompletedStages: execution.CompletedStages,
		FailedStages:    execution.FailedStages,
		SkippedStages:   execution.SkippedStages,
		ErrorMessage:    execution.ErrorMessage,
		DurationSeconds: execution.ExecutionTimeSeconds,
	}

	if err := s.bus.Publish(ctx, execution.WorkflowID, event); err != nil {
		s.logger.Warn("Failed to publish execution finished event",
			"workflow_id", execution.WorkflowID, "execution_id", execution.ID, "error", err)
	}
}
