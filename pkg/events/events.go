// Package events defines the event types published over the sync platform's
// event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the single bus topic all platform events flow through; consumers
// dispatch on the event_type metadata.
const Topic = "syncline.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow document lifecycle.
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"

	// Run lifecycle.
	ExecutionStartedEvent  EventType = "workflow.execution.started"
	ExecutionFinishedEvent EventType = "workflow.execution.finished"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type WorkflowSaved struct {
	BaseEvent

	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func (e WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (e WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	TriggeredBy string `json:"triggered_by"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionFinished struct {
	BaseEvent

	ExecutionID     string  `json:"execution_id"`
	Status          string  `json:"status"`
	CompletedStages int     `json:"completed_stages"`
	FailedStages    int     `json:"failed_stages"`
	SkippedStages   int     `json:"skipped_stages"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}
