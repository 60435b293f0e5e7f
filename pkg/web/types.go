// Package web provides the HTTP handlers and REST API for workflow and
// execution management.
package web

import "github.com/syncline/syncline/pkg/connector"

// ExecuteWorkflowRequest is the optional body of an execute call.
type ExecuteWorkflowRequest struct {
	TriggeredBy string         `json:"triggered_by,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// ConnectorSummary is the list entry for connector discovery.
type ConnectorSummary struct {
	ServiceType string `json:"service_type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ConnectorDetail is the full discovery document for one service type.
type ConnectorDetail struct {
	ConnectorSummary

	Capabilities    connector.Capability `json:"capabilities"`
	InventorySchema connector.Schema     `json:"inventory_schema"`
}
