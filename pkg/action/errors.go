// Package action defines error types for registration and dispatch
package action

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrRegisterClosed indicates the register no longer accepts work
	ErrRegisterClosed = errors.New("action register is closed")

	// ErrInvalidHandlerConfig indicates malformed handler configuration
	ErrInvalidHandlerConfig = errors.New("invalid handler config")

	// ErrDuplicateHandlerID indicates an explicit handler id collision
	ErrDuplicateHandlerID = errors.New("duplicate handler id")

	// ErrDispatchAborted indicates a dispatch settled as aborted
	ErrDispatchAborted = errors.New("dispatch aborted")

	// ErrHandlerTimeout indicates a handler exceeded its configured timeout
	ErrHandlerTimeout = errors.New("handler timed out")

	// ErrPayloadType indicates a typed handler received an incompatible payload
	ErrPayloadType = errors.New("payload type mismatch")
)

// DuplicateHandlerIDError reports a registration whose explicit id is already
// taken within the same action's handler list. The registration has no effect.
type DuplicateHandlerIDError struct {
	// Action is the action name the registration targeted
	Action string

	// ID is the colliding handler id
	ID string
}

// Error implements the error interface
func (e *DuplicateHandlerIDError) Error() string {
	return fmt.Sprintf("duplicate handler id %q for action %q", e.ID, e.Action)
}

// Is reports whether target is ErrDuplicateHandlerID
func (e *DuplicateHandlerIDError) Is(target error) bool {
	return target == ErrDuplicateHandlerID
}

// InvalidHandlerConfigError reports a malformed handler configuration value,
// raised synchronously from Register.
type InvalidHandlerConfigError struct {
	// Field is the offending configuration field
	Field string

	// Reason describes why the value was rejected
	Reason string
}

// Error implements the error interface
func (e *InvalidHandlerConfigError) Error() string {
	return fmt.Sprintf("invalid handler config: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidHandlerConfig
func (e *InvalidHandlerConfigError) Is(target error) bool {
	return target == ErrInvalidHandlerConfig
}

// HandlerExecutionError reports a blocking handler failure during a dispatch.
// It becomes the dispatch's errored detail; the registry is unaffected.
type HandlerExecutionError struct {
	// Action is the dispatched action name
	Action string

	// HandlerID identifies the failing handler
	HandlerID string

	// Cause is the error returned by the handler
	Cause error
}

// Error implements the error interface
func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler %q failed during dispatch of %q: %v", e.HandlerID, e.Action, e.Cause)
}

// Unwrap returns the underlying error
func (e *HandlerExecutionError) Unwrap() error {
	return e.Cause
}

// HandlerPanicError reports a recovered panic from a handler callback,
// carrying the panic value and the stack captured at recovery.
type HandlerPanicError struct {
	// Action is the dispatched action name
	Action string

	// HandlerID identifies the panicking handler
	HandlerID string

	// Value is the recovered panic value
	Value any

	// Stack is the goroutine stack at the point of recovery
	Stack []byte
}

// Error implements the error interface
func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler %q panicked during dispatch of %q: %v", e.HandlerID, e.Action, e.Value)
}

// BackgroundHandlerError reports a non-blocking handler failure that occurred
// after the engine had already moved on. It is delivered to the register-wide
// background error handler instead of the originating dispatch's outcome.
type BackgroundHandlerError struct {
	// Action is the dispatched action name
	Action string

	// HandlerID identifies the failing handler
	HandlerID string

	// DispatchID identifies the dispatch that launched the handler
	DispatchID string

	// Cause is the error returned by the handler
	Cause error
}

// Error implements the error interface
func (e *BackgroundHandlerError) Error() string {
	return fmt.Sprintf("background handler %q failed for action %q: %v", e.HandlerID, e.Action, e.Cause)
}

// Unwrap returns the underlying error
func (e *BackgroundHandlerError) Unwrap() error {
	return e.Cause
}
