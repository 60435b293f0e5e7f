package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence"
	"github.com/syncline/syncline/pkg/persistence/file"
)

func newPersistence(t *testing.T) persistence.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func sampleWorkflow(id string) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Name:   "shipstation to infiplex sync",
		Source: models.ConnectorBinding{"service_type": "shipstation"},
		Target: models.ConnectorBinding{"service_type": "infiplex"},
		Stages: []*models.Stage{
			models.NewStage("read", models.StageTypeConnectorMethod),
		},
	}
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	workflow := sampleWorkflow("wf-1")
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	assert.False(t, workflow.CreatedAt.IsZero())
	assert.False(t, workflow.UpdatedAt.IsZero())

	loaded, err := p.WorkflowRepository().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, "shipstation", loaded.Source.ServiceType())

	// stage wire defaults survive the round trip
	require.Len(t, loaded.Stages, 1)
	assert.True(t, loaded.Stages[0].Enabled)
	assert.Equal(t, models.ErrorStrategyFail, loaded.Stages[0].ErrorStrategy)
}

func TestWorkflowRepository_GetMissingReturnsNil(t *testing.T) {
	p := newPersistence(t)

	workflow, err := p.WorkflowRepository().GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, workflow)
}

func TestWorkflowRepository_ListSortsNewestFirst(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	older := sampleWorkflow("wf-old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, p.WorkflowRepository().Save(ctx, older))

	newer := sampleWorkflow("wf-new")
	require.NoError(t, p.WorkflowRepository().Save(ctx, newer))

	workflows, err := p.WorkflowRepository().List(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "wf-new", workflows[0].ID)
	assert.Equal(t, "wf-old", workflows[1].ID)
}

func TestWorkflowRepository_ListEmptyRoot(t *testing.T) {
	p := newPersistence(t)

	workflows, err := p.WorkflowRepository().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().Save(ctx, sampleWorkflow("wf-1")))
	require.NoError(t, p.WorkflowRepository().Delete(ctx, "wf-1"))

	workflow, err := p.WorkflowRepository().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Nil(t, workflow)

	// deleting again is not an error
	assert.NoError(t, p.WorkflowRepository().Delete(ctx, "wf-1"))
}

func TestExecutionRepository_SaveAndGet(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	execution := models.NewExecution("exec-1", "wf-1", "api")
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedStages = 3
	require.NoError(t, p.ExecutionRepository().Save(ctx, execution))

	loaded, err := p.ExecutionRepository().GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
	assert.Equal(t, 3, loaded.CompletedStages)
	assert.Equal(t, "api", loaded.TriggeredBy)
}

func TestExecutionRepository_GetMissing(t *testing.T) {
	p := newPersistence(t)

	_, err := p.ExecutionRepository().GetByID(context.Background(), "nope")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestExecutionRepository_ListByWorkflow(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	first := models.NewExecution("exec-1", "wf-1", "scheduler")
	first.StartedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, p.ExecutionRepository().Save(ctx, first))

	second := models.NewExecution("exec-2", "wf-1", "scheduler")
	require.NoError(t, p.ExecutionRepository().Save(ctx, second))

	other := models.NewExecution("exec-3", "wf-2", "scheduler")
	require.NoError(t, p.ExecutionRepository().Save(ctx, other))

	executions, err := p.ExecutionRepository().ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "exec-2", executions[0].ID)
	assert.Equal(t, "exec-1", executions[1].ID)
}

func TestHealthCheck(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, file.NewPersistence(dir).HealthCheck(context.Background()))
	assert.Error(t, file.NewPersistence(dir+"/missing").HealthCheck(context.Background()))
}
