package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncline/syncline/pkg/eventbus"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence"
	"github.com/syncline/syncline/pkg/persistence/file"
	"github.com/syncline/syncline/pkg/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *recordingPublisher) published() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}

func validWorkflow() *models.Workflow {
	read := models.NewStage("read", models.StageTypeConnectorMethod)
	read.Connector = models.ConnectorSource
	read.Method = "read_inventory"
	read.OutputVariable = "items"

	write := models.NewStage("write", models.StageTypeConnectorMethod)
	write.Connector = models.ConnectorTarget
	write.Method = "write_inventory"
	write.InputVariables = []string{"items"}
	write.DependsOn = []string{"read"}

	return &models.Workflow{
		Name:   "shipstation to infiplex",
		Source: models.ConnectorBinding{"service_type": "shipstation"},
		Target: models.ConnectorBinding{"service_type": "infiplex"},
		Stages: []*models.Stage{read, write},
	}
}

func newWorkflowService(t *testing.T) (*services.Workflow, *recordingPublisher) {
	t.Helper()

	publisher := &recordingPublisher{}

	return services.NewWorkflow(file.NewPersistence(t.TempDir()), publisher, testLogger()), publisher
}

func TestWorkflowCreate_GeneratesIDAndPublishes(t *testing.T) {
	svc, publisher := newWorkflowService(t)

	created, err := svc.Create(context.Background(), validWorkflow())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.DefaultVersion, created.Version)

	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, loaded.Name)

	require.Len(t, publisher.published(), 1)
}

func TestWorkflowCreate_DuplicateIDConflicts(t *testing.T) {
	svc, _ := newWorkflowService(t)
	ctx := context.Background()

	workflow := validWorkflow()
	workflow.ID = "wf-1"

	_, err := svc.Create(ctx, workflow)
	require.NoError(t, err)

	again := validWorkflow()
	again.ID = "wf-1"

	_, err = svc.Create(ctx, again)
	assert.True(t, services.IsConflictError(err))
}

func TestWorkflowGet_Missing(t *testing.T) {
	svc, _ := newWorkflowService(t)

	_, err := svc.Get(context.Background(), "nope")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowDelete(t *testing.T) {
	svc, publisher := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validWorkflow())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	// saved + deleted
	assert.Len(t, publisher.published(), 2)
}

func TestWorkflowValidate(t *testing.T) {
	svc, _ := newWorkflowService(t)

	tests := []struct {
		name   string
		mutate func(w *models.Workflow)
	}{
		{"short name", func(w *models.Workflow) { w.Name = "ab" }},
		{"no stages", func(w *models.Workflow) { w.Stages = nil }},
		{"duplicate stage id", func(w *models.Workflow) {
			w.Stages = append(w.Stages, models.NewStage("read", models.StageTypeLog))
		}},
		{"unknown dependency", func(w *models.Workflow) {
			w.Stages[1].DependsOn = []string{"missing"}
		}},
		{"connector stage without method", func(w *models.Workflow) {
			w.Stages[0].Method = ""
		}},
		{"unknown credentials key", func(w *models.Workflow) {
			w.Stages[1].CredentialsKey = "warehouse_b"
		}},
		{"bad schedule", func(w *models.Workflow) {
			w.Schedule = "not a cron line"
		}},
		{"bad stage parameters", func(w *models.Workflow) {
			stage := models.NewStage("set", models.StageTypeSetVariable)
			stage.Parameters = map[string]any{"value": 1}
			w.Stages = append(w.Stages, stage)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			workflow := validWorkflow()
			tc.mutate(workflow)

			err := svc.Validate(workflow)
			require.Error(t, err)
			assert.True(t, services.IsValidationError(err), "expected a validation error, got: %v", err)
		})
	}

	// sanity: the unmutated workflow is valid
	assert.NoError(t, svc.Validate(validWorkflow()))

	// a correct schedule passes
	scheduled := validWorkflow()
	scheduled.Schedule = "*/15 * * * *"
	assert.NoError(t, svc.Validate(scheduled))
}

func TestWorkflowUpdate_KeepsCreatedAt(t *testing.T) {
	svc, _ := newWorkflowService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validWorkflow())
	require.NoError(t, err)

	updated := validWorkflow()
	updated.ID = created.ID
	updated.Name = "renamed sync"

	result, err := svc.Update(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, result.CreatedAt)

	loaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed sync", loaded.Name)
}
