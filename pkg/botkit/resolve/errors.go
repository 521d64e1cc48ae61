package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for resolution.
var (
	// ErrNilSpec indicates Resolve was called with a nil spec.
	ErrNilSpec = errors.New("spec cannot be nil")

	// ErrNotResolved indicates Get was called for a spec that has not
	// been resolved yet in this context.
	ErrNotResolved = errors.New("spec not resolved in this context")

	// ErrNotSeeded indicates a seed spec was resolved before the
	// dispatcher injected its value.
	ErrNotSeeded = errors.New("seed spec has no value in this context")

	// ErrContextClosed indicates resolution was attempted after teardown.
	ErrContextClosed = errors.New("resolution context closed")

	// ErrTypeMismatch indicates a resolved value did not have the type
	// the caller asserted.
	ErrTypeMismatch = errors.New("resolved value has unexpected type")
)

// ResolutionError wraps a provider or lookup failure with the spec name.
type ResolutionError struct {
	Spec string
	Err  error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Spec, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CycleError reports a cyclic requirement declaration.
type CycleError struct {
	// Path is the chain of spec names forming the cycle, with the
	// repeated spec at both ends.
	Path []string
}

func newCycleError(path []*Spec) *CycleError {
	names := make([]string, len(path))
	for i, s := range path {
		names[i] = s.Name()
	}
	return &CycleError{Path: names}
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Path, " -> ")
}
