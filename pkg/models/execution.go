package models

import "time"

// StageStatus is the lifecycle state of one stage invocation.
type StageStatus string

const (
	StageStatusRunning StageStatus = "running"
	StageStatusSuccess StageStatus = "success"
	StageStatusFailed  StageStatus = "failed"
	StageStatusSkipped StageStatus = "skipped"
)

// ExecutionStatus is the lifecycle state of a whole run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// StageResult records the outcome of one logical stage invocation. Retries
// replace the result rather than appending a second entry.
type StageResult struct {
	StageID              string      `json:"stage_id"`
	Status               StageStatus `json:"status"`
	StartedAt            time.Time   `json:"started_at"`
	CompletedAt          *time.Time  `json:"completed_at,omitempty"`
	ExecutionTimeSeconds float64     `json:"execution_time_seconds,omitempty"`

	OutputData     any `json:"output_data,omitempty"`
	ItemsProcessed int `json:"items_processed"`

	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewStageResult creates a result in the running state.
func NewStageResult(stageID string) *StageResult {
	return &StageResult{
		StageID:   stageID,
		Status:    StageStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the completion time and elapsed seconds.
func (r *StageResult) Finish() {
	now := time.Now().UTC()
	r.CompletedAt = &now
	r.ExecutionTimeSeconds = now.Sub(r.StartedAt).Seconds()
}

// Execution is the run-level record of one workflow execution. The engine
// finalizes it exactly once; it is never mutated after the driver returns.
type Execution struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`

	StartedAt            time.Time  `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	ExecutionTimeSeconds float64    `json:"execution_time_seconds,omitempty"`

	Status ExecutionStatus `json:"status"`

	StageResults    []*StageResult `json:"stage_results"`
	TotalStages     int            `json:"total_stages"`
	CompletedStages int            `json:"completed_stages"`
	FailedStages    int            `json:"failed_stages"`
	SkippedStages   int            `json:"skipped_stages"`

	FinalVariables map[string]any `json:"final_variables,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`

	TriggeredBy string         `json:"triggered_by"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewExecution creates a running execution record for a workflow.
func NewExecution(id, workflowID, triggeredBy string) *Execution {
	return &Execution{
		ID:           id,
		WorkflowID:   workflowID,
		StartedAt:    time.Now().UTC(),
		Status:       ExecutionStatusRunning,
		StageResults: make([]*StageResult, 0),
		TriggeredBy:  triggeredBy,
	}
}

// Finish stamps the completion time and elapsed seconds.
func (e *Execution) Finish() {
	now := time.Now().UTC()
	e.CompletedAt = &now
	e.ExecutionTimeSeconds = now.Sub(e.StartedAt).Seconds()
}

// ResultFor returns the recorded result for a stage id.
func (e *Execution) ResultFor(stageID string) (*StageResult, bool) {
	for _, result := range e.StageResults {
		if result.StageID == stageID {
			return result, true
		}
	}

	return nil, false
}
