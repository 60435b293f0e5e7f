package connector

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationNotSupported indicates an operation was invoked on a
	// connector whose capabilities do not include it.
	ErrOperationNotSupported = errors.New("operation not supported by connector")

	// ErrUnknownOperation indicates the connector exposes no operation
	// with the requested name at all.
	ErrUnknownOperation = errors.New("unknown connector operation")

	// ErrMissingCredential indicates a required credential argument was
	// neither configured on the connector nor injected for the call.
	ErrMissingCredential = errors.New("missing required credential")

	// ErrServiceTypeNotRegistered indicates no factory is registered for a
	// workflow binding's service_type.
	ErrServiceTypeNotRegistered = errors.New("service type not registered")
)

// RequestError wraps a failed call against the external service.
type RequestError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a RequestError for a service operation.
func NewRequestError(service, op string, statusCode int, err error) *RequestError {
	return &RequestError{Service: service, Op: op, StatusCode: statusCode, Err: err}
}

// IsNotSupported checks whether an error is a capability violation.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrOperationNotSupported)
}
