package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence/file"
	"github.com/syncline/syncline/pkg/scheduler"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []string
	fired chan string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{fired: make(chan string, 16)}
}

func (r *recordingRunner) Execute(_ context.Context, workflowID, triggeredBy string, _ map[string]any) (*models.Execution, error) {
	r.mu.Lock()
	r.calls = append(r.calls, workflowID+"/"+triggeredBy)
	r.mu.Unlock()

	r.fired <- workflowID

	return &models.Execution{ID: "exec-test", WorkflowID: workflowID, Status: models.ExecutionStatusCompleted}, nil
}

func (r *recordingRunner) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

func scheduledWorkflow(id, schedule string, active bool) *models.Workflow {
	return &models.Workflow{
		ID:       id,
		Name:     "scheduled workflow " + id,
		Source:   models.ConnectorBinding{"service_type": "shipstation"},
		Target:   models.ConnectorBinding{"service_type": "infiplex"},
		Stages:   []*models.Stage{models.NewStage("noop", models.StageTypeLog)},
		Schedule: schedule,
		Active:   active,
	}
}

func TestSchedulerRunsActiveWorkflow(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()

	require.NoError(t, p.WorkflowRepository().Save(ctx, scheduledWorkflow("wf-cron", "@every 1s", true)))

	s := scheduler.New(p.WorkflowRepository(), runner, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Start(ctx))

	defer func() {
		require.NoError(t, s.Stop(ctx))
	}()

	select {
	case id := <-runner.fired:
		assert.Equal(t, "wf-cron", id)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled workflow never ran")
	}

	calls := runner.recorded()
	require.NotEmpty(t, calls)
	assert.Equal(t, "wf-cron/scheduler", calls[0])
}

func TestSchedulerIgnoresInactiveAndUnscheduled(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()

	require.NoError(t, p.WorkflowRepository().Save(ctx, scheduledWorkflow("wf-off", "@every 1s", false)))
	require.NoError(t, p.WorkflowRepository().Save(ctx, scheduledWorkflow("wf-manual", "", true)))

	s := scheduler.New(p.WorkflowRepository(), runner, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Start(ctx))

	defer func() {
		require.NoError(t, s.Stop(ctx))
	}()

	select {
	case id := <-runner.fired:
		t.Fatalf("unexpected run of workflow %s", id)
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestSchedulerReloadRemovesDeactivated(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()

	workflow := scheduledWorkflow("wf-toggle", "@every 1s", true)
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	s := scheduler.New(p.WorkflowRepository(), runner, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Start(ctx))

	defer func() {
		require.NoError(t, s.Stop(ctx))
	}()

	select {
	case <-runner.fired:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled workflow never ran")
	}

	workflow.Active = false
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))
	require.NoError(t, s.Reload(ctx))

	// drain anything already in flight, then expect silence
	time.Sleep(100 * time.Millisecond)

	for {
		select {
		case <-runner.fired:
			continue
		default:
		}

		break
	}

	select {
	case id := <-runner.fired:
		t.Fatalf("workflow %s ran after being deactivated", id)
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestSchedulerReloadAppliesChangedExpression(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()

	workflow := scheduledWorkflow("wf-recadence", "@yearly", true)
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	s := scheduler.New(p.WorkflowRepository(), runner, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Start(ctx))

	defer func() {
		require.NoError(t, s.Stop(ctx))
	}()

	workflow.Schedule = "@every 1s"
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))
	require.NoError(t, s.Reload(ctx))

	select {
	case id := <-runner.fired:
		assert.Equal(t, "wf-recadence", id)
	case <-time.After(3 * time.Second):
		t.Fatal("workflow kept its old cadence after the schedule changed")
	}
}

func TestSchedulerRejectsInvalidCron(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())

	require.NoError(t, p.WorkflowRepository().Save(ctx, scheduledWorkflow("wf-bad", "not a cron", true)))

	s := scheduler.New(p.WorkflowRepository(), newRecordingRunner(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, s.Start(ctx))
}
