package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/syncline/syncline/pkg/eventbus"
	"github.com/syncline/syncline/pkg/events"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow is the workflow document service: CRUD plus validation.
type Workflow struct {
	persistence persistence.Persistence
	bus         eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. The event publisher may be
// nil; lifecycle events are then not emitted.
func NewWorkflow(p persistence.Persistence, bus eventbus.EventPublisher, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: p,
		bus:         bus,
		validate:    validator.New(),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns all stored workflows.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// Get returns one workflow by ID.
func (w *Workflow) Get(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", id, err)
	}

	if workflow == nil {
		return nil, persistence.NewWorkflowError("Get", id, ErrWorkflowNotFound)
	}

	return workflow, nil
}

// Create validates and stores a new workflow, generating an ID when none is
// supplied.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Create", "WORKFLOW_NIL", "workflow body is required", ErrWorkflowNil)
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	} else {
		existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflow.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check workflow %s: %w", workflow.ID, err)
		}

		if existing != nil {
			return nil, NewValidationError("Create", "WORKFLOW_EXISTS",
				fmt.Sprintf("workflow %s already exists", workflow.ID), ErrWorkflowExists)
		}
	}

	if workflow.Version == "" {
		workflow.Version = models.DefaultVersion
	}

	if err := w.Validate(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	w.publishSaved(ctx, workflow)
	w.logger.Info("Created workflow", "workflow_id", workflow.ID, "name", workflow.Name)

	return workflow, nil
}

// Update validates and replaces an existing workflow.
func (w *Workflow) Update(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Update", "WORKFLOW_NIL", "workflow body is required", ErrWorkflowNil)
	}

	existing, err := w.Get(ctx, workflow.ID)
	if err != nil {
		return nil, err
	}

	workflow.CreatedAt = existing.CreatedAt

	if err := w.Validate(workflow); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	w.publishSaved(ctx, workflow)
	w.logger.Info("Updated workflow", "workflow_id", workflow.ID)

	return workflow, nil
}

// Delete removes a workflow.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	if _, err := w.Get(ctx, id); err != nil {
		return err
	}

	if err := w.persistence.WorkflowRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if w.bus != nil {
		event := events.WorkflowDeleted{
			BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id),
		}
		if err := w.bus.Publish(ctx, id, event); err != nil {
			w.logger.Warn("Failed to publish workflow deleted event", "workflow_id", id, "error", err)
		}
	}

	w.logger.Info("Deleted workflow", "workflow_id", id)

	return nil
}

// Validate checks a workflow document: struct constraints, stage id
// uniqueness, dependency references, credential references, per-stage-type
// parameter schemas, and the cron schedule when present.
func (w *Workflow) Validate(workflow *models.Workflow) error {
	if err := w.validate.Struct(workflow); err != nil {
		return NewValidationError("Validate", "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	if len(workflow.Stages) == 0 {
		return NewValidationError("Validate", "STAGES_REQUIRED",
			"workflow must define at least one stage", ErrStagesRequired)
	}

	seen := make(map[string]struct{}, len(workflow.Stages))
	for _, stage := range workflow.Stages {
		if _, dup := seen[stage.ID]; dup {
			return NewValidationError("Validate", "DUPLICATE_STAGE_ID",
				fmt.Sprintf("stage id %q appears more than once", stage.ID), ErrDuplicateStageID)
		}

		seen[stage.ID] = struct{}{}
	}

	for _, stage := range workflow.Stages {
		for _, dep := range stage.DependsOn {
			if _, ok := seen[dep]; !ok {
				return NewValidationError("Validate", "UNKNOWN_DEPENDENCY",
					fmt.Sprintf("stage %q depends on unknown stage %q", stage.ID, dep), ErrUnknownDependency)
			}
		}

		if stage.Type == models.StageTypeConnectorMethod && (stage.Connector == "" || stage.Method == "") {
			return NewValidationError("Validate", "CONNECTOR_REQUIRED",
				fmt.Sprintf("stage %q must name a connector and method", stage.ID), ErrConnectorRequired)
		}

		if stage.CredentialsKey != "" {
			if _, ok := workflow.CredentialsConfig[stage.CredentialsKey]; !ok {
				return NewValidationError("Validate", "UNKNOWN_CREDENTIALS_KEY",
					fmt.Sprintf("stage %q references unknown credentials_key %q", stage.ID, stage.CredentialsKey), ErrUnknownCredentials)
			}
		}

		if err := models.ValidateStageParameters(stage); err != nil {
			return NewValidationError("Validate", "INVALID_PARAMETERS", err.Error(), ErrInvalidParameters)
		}
	}

	if workflow.Schedule != "" {
		if _, err := cron.ParseStandard(workflow.Schedule); err != nil {
			return NewValidationError("Validate", "INVALID_SCHEDULE",
				fmt.Sprintf("schedule %q: %v", workflow.Schedule, err), ErrInvalidSchedule)
		}
	}

	return nil
}

func (w *Workflow) publishSaved(ctx context.Context, workflow *models.Workflow) {
	if w.bus == nil {
		return
	}

	event := events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, workflow.ID),
		Name:      workflow.Name,
		Active:    workflow.Active,
	}

	if err := w.bus.Publish(ctx, workflow.ID, event); err != nil {
		w.logger.Warn("Failed to publish workflow saved event", "workflow_id", workflow.ID, "error", err)
	}
}
