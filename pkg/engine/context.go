package engine

import (
	"fmt"
	"sort"

	"github.com/syncline/syncline/pkg/connector"
	"github.com/syncline/syncline/pkg/models"
)

// ExecutionContext is the mutable per-run state threaded through stage
// execution: the variable store, the live connectors and the results
// produced so far. A context belongs to exactly one run; runs never share
// one, so no locking is needed.
type ExecutionContext struct {
	WorkflowID   string
	Variables    map[string]any
	Connectors   map[string]connector.Connector
	StageResults []*models.StageResult
}

// NewExecutionContext seeds variables from the workflow definition and
// overlays caller-supplied initial variables, which win on key collision.
func NewExecutionContext(workflow *models.Workflow, initialVariables map[string]any) *ExecutionContext {
	variables := make(map[string]any, len(workflow.Variables)+len(initialVariables))

	for k, v := range workflow.Variables {
		variables[k] = v
	}

	for k, v := range initialVariables {
		variables[k] = v
	}

	return &ExecutionContext{
		WorkflowID:   workflow.ID,
		Variables:    variables,
		Connectors:   make(map[string]connector.Connector),
		StageResults: make([]*models.StageResult, 0),
	}
}

// SetVariable stores a value under a name, overwriting any previous value.
func (c *ExecutionContext) SetVariable(name string, value any) {
	c.Variables[name] = value
}

// Variable returns the current value of a variable.
func (c *ExecutionContext) Variable(name string) (any, bool) {
	value, ok := c.Variables[name]

	return value, ok
}

// Connector returns the bound connector for a logical name.
func (c *ExecutionContext) Connector(name string) (connector.Connector, error) {
	conn, ok := c.Connectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrConnectorNotBound, name, c.connectorNames())
	}

	return conn, nil
}

// DependenciesMet reports whether every stage id in depends_on has a
// success result recorded so far. Dangling ids can never be satisfied.
func (c *ExecutionContext) DependenciesMet(stage *models.Stage) bool {
	if len(stage.DependsOn) == 0 {
		return true
	}

	completed := make(map[string]struct{}, len(c.StageResults))

	for _, result := range c.StageResults {
		if result.Status == models.StageStatusSuccess {
			completed[result.StageID] = struct{}{}
		}
	}

	for _, dep := range stage.DependsOn {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}

	return true
}

// VariablesSnapshot returns a shallow copy of the variable map.
func (c *ExecutionContext) VariablesSnapshot() map[string]any {
	snapshot := make(map[string]any, len(c.Variables))
	for k, v := range c.Variables {
		snapshot[k] = v
	}

	return snapshot
}

func (c *ExecutionContext) connectorNames() []string {
	names := make([]string, 0, len(c.Connectors))
	for name := range c.Connectors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
