package engine

import "errors"

var (
	// ErrConnectorNotBound indicates a stage references a connector name
	// with no connector registered in the execution context.
	ErrConnectorNotBound = errors.New("connector not bound in execution context")

	// ErrUnknownStageType indicates a stage type the interpreter does not
	// dispatch. This includes the reserved condition and loop types.
	ErrUnknownStageType = errors.New("unknown stage type")

	// ErrStageMisconfigured indicates a stage definition is missing fields
	// its type requires.
	ErrStageMisconfigured = errors.New("stage misconfigured")
)
