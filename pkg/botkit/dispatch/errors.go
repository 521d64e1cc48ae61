package dispatch

import (
	"errors"
	"fmt"
)

// Dispatcher errors.
var (
	// ErrStopped indicates a submission to a dispatcher that is stopping
	// or has stopped.
	ErrStopped = errors.New("dispatcher stopped")

	// ErrNotStarted indicates a submission before Start.
	ErrNotStarted = errors.New("dispatcher not started")

	// ErrWaitTimeout indicates a waiter's deadline passed before a
	// matching event arrived.
	ErrWaitTimeout = errors.New("wait timed out")

	// ErrWaitBudget indicates a waiter inspected its maximum number of
	// events without a match.
	ErrWaitBudget = errors.New("wait event budget exhausted")
)

// PredicateError records a predicate that returned an error while being
// evaluated for a node. The node is skipped; siblings are unaffected.
type PredicateError struct {
	NodeID string
	Err    error
}

func (e *PredicateError) Error() string {
	return fmt.Sprintf("node %s: predicate: %v", e.NodeID, e.Err)
}

func (e *PredicateError) Unwrap() error { return e.Err }

// ResolutionError records a dependency resolution failure for a node. The
// node is skipped; siblings are unaffected.
type ResolutionError struct {
	NodeID string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("node %s: resolve dependencies: %v", e.NodeID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// HandlerError records a handler body failure, including a recovered panic.
// The failure is isolated to the node.
type HandlerError struct {
	NodeID string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("node %s: handler: %v", e.NodeID, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
