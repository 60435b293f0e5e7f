// Package scheduler runs active workflows on their cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/syncline/syncline/pkg/models"
	"github.com/syncline/syncline/pkg/persistence"
)

// TriggeredBy is recorded on every execution started by the scheduler.
const TriggeredBy = "scheduler"

// Runner starts a workflow run. Satisfied by services.Execution.
type Runner interface {
	Execute(ctx context.Context, workflowID, triggeredBy string, initialVariables map[string]any) (*models.Execution, error)
}

type job struct {
	entry cron.EntryID
	expr  string
}

type Scheduler struct {
	workflows persistence.WorkflowRepository
	runner    Runner
	logger    *slog.Logger

	cron  *cron.Cron
	jobs  map[string]job
	mutex sync.Mutex
}

func New(workflows persistence.WorkflowRepository, runner Runner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		workflows: workflows,
		runner:    runner,
		logger:    logger.With("module", "scheduler"),
		jobs:      make(map[string]job),
	}
}

// Start loads the scheduled workflows and begins running them. Call Reload
// after workflow changes to pick them up.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if err := s.Reload(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", s.jobCount())

	return nil
}

// Reload re-syncs cron entries with the stored workflows. Workflows that
// were deleted, deactivated or unscheduled lose their entry; new ones are
// added, and a changed cron expression replaces the existing entry.
func (s *Scheduler) Reload(ctx context.Context) error {
	workflows, err := s.workflows.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	wanted := make(map[string]string)

	for _, workflow := range workflows {
		if workflow.Active && workflow.Schedule != "" {
			wanted[workflow.ID] = workflow.Schedule
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, j := range s.jobs {
		if expr, ok := wanted[id]; !ok || expr != j.expr {
			s.cron.Remove(j.entry)
			delete(s.jobs, id)
			s.logger.Info("Removed schedule", "workflow_id", id, "cron", j.expr)
		}
	}

	for id, expr := range wanted {
		if _, ok := s.jobs[id]; ok {
			continue
		}

		workflowID := id

		entryID, err := s.cron.AddFunc(expr, func() {
			s.run(workflowID)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule workflow %s: %w", id, err)
		}

		s.jobs[id] = job{entry: entryID, expr: expr}
		s.logger.Info("Added schedule", "workflow_id", id, "cron", expr)
	}

	return nil
}

func (s *Scheduler) run(workflowID string) {
	logger := s.logger.With("workflow_id", workflowID)
	logger.Info("Schedule fired")

	execution, err := s.runner.Execute(context.Background(), workflowID, TriggeredBy, nil)
	if err != nil {
		logger.Error("Scheduled run failed", "error", err)

		return
	}

	logger.Info("Scheduled run finished",
		"execution_id", execution.ID,
		"status", execution.Status,
	)
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scheduler")

	if s.cron != nil {
		stopCtx := s.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mutex.Lock()
	s.jobs = make(map[string]job)
	s.mutex.Unlock()

	return nil
}

func (s *Scheduler) jobCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.jobs)
}
