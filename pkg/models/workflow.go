// Package models defines the core domain models for stage-based sync workflows.
package models

import "time"

// Connector slot names bound for every workflow run.
const (
	ConnectorSource = "source"
	ConnectorTarget = "target"
)

const (
	DefaultVersion        = "1.0"
	DefaultTimeoutSeconds = 3600
)

// ConnectorBinding is the wire format for a workflow's source/target
// configuration. It carries a service_type tag plus free-form static
// configuration; credentials and base_url may be present but are usually
// resolved per stage call instead.
type ConnectorBinding map[string]any

// ServiceType returns the service_type tag of the binding.
func (b ConnectorBinding) ServiceType() string {
	t, _ := b["service_type"].(string)

	return t
}

// BaseURL returns the statically configured base URL, if any.
func (b ConnectorBinding) BaseURL() string {
	u, _ := b["base_url"].(string)

	return u
}

// Credentials returns the statically configured credentials, if any.
func (b ConnectorBinding) Credentials() map[string]any {
	c, _ := b["credentials"].(map[string]any)

	return c
}

// Config returns every binding key that is not service_type, credentials or
// base_url. These are passed to the connector as construction configuration.
func (b ConnectorBinding) Config() map[string]any {
	config := make(map[string]any)

	for k, v := range b {
		switch k {
		case "service_type", "credentials", "base_url":
		default:
			config[k] = v
		}
	}

	return config
}

// Workflow is a complete stage-based workflow document. The JSON shape is
// the persisted wire format and must keep decoding existing documents.
type Workflow struct {
	ID          string `json:"id"`
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`

	Source ConnectorBinding `json:"source" validate:"required"`
	Target ConnectorBinding `json:"target" validate:"required"`

	// CredentialsConfig holds named credential sets referenced by stages
	// through their credentials_key.
	CredentialsConfig map[string]map[string]any `json:"credentials_config,omitempty"`

	Stages []*Stage `json:"stages" validate:"required,dive"`

	Variables map[string]any `json:"variables,omitempty"`

	// TimeoutSeconds is advisory metadata for the trigger/scheduler; the
	// engine does not enforce it.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	Schedule string `json:"schedule,omitempty"`
	Active   bool   `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
}

// EnabledStageCount returns how many stages would be attempted in a run.
func (w *Workflow) EnabledStageCount() int {
	count := 0

	for _, stage := range w.Stages {
		if stage.Enabled {
			count++
		}
	}

	return count
}

// StageByID returns the stage with the given id.
func (w *Workflow) StageByID(id string) (*Stage, bool) {
	for _, stage := range w.Stages {
		if stage.ID == id {
			return stage, true
		}
	}

	return nil, false
}
