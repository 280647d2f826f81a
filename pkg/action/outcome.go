package action

import (
	"time"
)

// DispatchStatus is the state of one dispatch
type DispatchStatus int32

const (
	// StatusPending dispatch is created but no handler has run
	StatusPending DispatchStatus = iota
	// StatusRunning the handler walk is in progress
	StatusRunning
	// StatusCompleted the snapshot was exhausted without abort or error
	StatusCompleted
	// StatusAborted a handler or an external signal aborted the dispatch
	StatusAborted
	// StatusErrored a blocking handler failed and the abort policy applied
	StatusErrored
)

// String returns string representation of the status
func (s DispatchStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusAborted:
		return "Aborted"
	case StatusErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is a settled end state
func (s DispatchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted || s == StatusErrored
}

// Outcome is the settled result of one dispatch.
type Outcome struct {
	// DispatchID uniquely identifies this dispatch
	DispatchID string

	// Action is the dispatched action name
	Action string

	// Status is the terminal status of the dispatch
	Status DispatchStatus

	// Payload is the final payload after all handler mutations
	Payload any

	// Results holds handler-reported values in execution order
	Results []any

	// AbortReason is set when Status is StatusAborted
	AbortReason string

	// Err carries the failure detail for StatusErrored, or the optional
	// abort detail for StatusAborted
	Err error

	// HandlerErrors collects non-fatal handler failures when the register
	// runs with ErrorPolicyContinue
	HandlerErrors []error

	// Duration is the wall time from dispatch start to settlement
	Duration time.Duration
}

// Success reports whether the dispatch completed without abort or error
func (o *Outcome) Success() bool {
	return o.Status == StatusCompleted
}
