package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncline/syncline/pkg/connector"
	"github.com/syncline/syncline/pkg/credentials"
	"github.com/syncline/syncline/pkg/engine"
	"github.com/syncline/syncline/pkg/events"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence"
	"github.com/syncline/syncline/pkg/persistence/file"
	"github.com/syncline/syncline/pkg/services"
)

func logOnlyWorkflow() *models.Workflow {
	stage := models.NewStage("announce", models.StageTypeLog)
	stage.Parameters = map[string]any{"message": "running {workflow}"}
	stage.OutputVariable = "line"

	return &models.Workflow{
		ID:        "wf-log",
		Name:      "log only workflow",
		Source:    models.ConnectorBinding{"service_type": "shipstation"},
		Target:    models.ConnectorBinding{"service_type": "infiplex"},
		Variables: map[string]any{"workflow": "sync"},
		Stages:    []*models.Stage{stage},
	}
}

func newExecutionService(t *testing.T) (*services.Execution, persistence.Persistence, *recordingPublisher) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	publisher := &recordingPublisher{}

	eng := engine.New(connector.NewRegistry(testLogger()), credentials.Static{}, testLogger())
	svc := services.NewExecution(p, eng, publisher, testLogger())

	return svc, p, publisher
}

func TestExecutionExecute_RunsAndPersists(t *testing.T) {
	svc, p, publisher := newExecutionService(t)
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().Save(ctx, logOnlyWorkflow()))

	execution, err := svc.Execute(ctx, "wf-log", "api", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, "api", execution.TriggeredBy)
	assert.Equal(t, "running sync", execution.FinalVariables["line"])

	stored, err := p.ExecutionRepository().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.Status, stored.Status)

	published := publisher.published()
	require.Len(t, published, 2)

	started, ok := published[0].(events.ExecutionStarted)
	require.True(t, ok)
	assert.Equal(t, execution.ID, started.ExecutionID)
	assert.Equal(t, "api", started.TriggeredBy)

	finished, ok := published[1].(events.ExecutionFinished)
	require.True(t, ok)
	assert.Equal(t, execution.ID, finished.ExecutionID)
	assert.Equal(t, "completed", finished.Status)
	assert.Equal(t, 1, finished.CompletedStages)
}

func TestExecutionExecute_UnknownWorkflow(t *testing.T) {
	svc, _, publisher := newExecutionService(t)

	_, err := svc.Execute(context.Background(), "nope", "api", nil)
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.Empty(t, publisher.published())
}

func TestExecutionListByWorkflow(t *testing.T) {
	svc, p, _ := newExecutionService(t)
	ctx := context.Background()

	require.NoError(t, p.WorkflowRepository().Save(ctx, logOnlyWorkflow()))

	first, err := svc.Execute(ctx, "wf-log", "scheduler", nil)
	require.NoError(t, err)

	second, err := svc.Execute(ctx, "wf-log", "api", nil)
	require.NoError(t, err)

	executions, err := svc.ListByWorkflow(ctx, "wf-log")
	require.NoError(t, err)
	require.Len(t, executions, 2)

	ids := []string{executions[0].ID, executions[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}
