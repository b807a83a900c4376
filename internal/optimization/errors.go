package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the acquisition optimization packages. Match them
// with errors.Is; the concrete error usually carries more context.
var (
	// ErrUnknownVariable is returned when a name does not match any variable
	// of the design space.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrUnsupportedOptimizer is returned for an optimizer name with no backend.
	ErrUnsupportedOptimizer = errors.New("unsupported optimizer")

	// ErrNoAnchorPoints is returned when anchor generation produced no point
	// to start a local search from, typically because the domain is fully
	// explored.
	ErrNoAnchorPoints = errors.New("no anchor points available")

	// ErrOptimizerExecution is returned when a backend optimizer fails.
	ErrOptimizerExecution = errors.New("optimizer execution failed")

	// ErrOptimizationTimeout is returned when an Optimize call exceeds its
	// wall-clock budget.
	ErrOptimizationTimeout = errors.New("optimization timed out")

	// ErrMissingModel is returned when Thompson sampling anchors are requested
	// without a surrogate model.
	ErrMissingModel = errors.New("surrogate model required")

	// ErrInvalidContext is returned for a malformed context.
	ErrInvalidContext = errors.New("invalid context")

	// ErrInvalidBounds is returned for an empty or inverted search box.
	ErrInvalidBounds = errors.New("invalid bounds")

	// ErrInvalidSpace is returned for a malformed design space definition.
	ErrInvalidSpace = errors.New("invalid design space")

	// ErrInvalidObservations is returned when evaluated points and their
	// values do not match up.
	ErrInvalidObservations = errors.New("invalid observations")

	// ErrInvalidPoint is returned for a point that is not in the design space.
	ErrInvalidPoint = errors.New("invalid point")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	switch {
	case e.Component != "" && e.Op != "":
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	case e.Component != "":
		prefix = e.Component
	case e.Op != "":
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// AnchorError reports a backend failure while optimizing from one anchor
// point. It matches ErrOptimizerExecution as well as the underlying error.
type AnchorError struct {
	// Anchor is the index of the anchor point in generation order.
	Anchor int
	Err    error
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor %d: %v: %v", e.Anchor, ErrOptimizerExecution, e.Err)
}

// Unwrap exposes both ErrOptimizerExecution and the backend error.
func (e *AnchorError) Unwrap() []error {
	return []error{ErrOptimizerExecution, e.Err}
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
