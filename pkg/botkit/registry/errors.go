package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry mutation.
var (
	// ErrPluginExists indicates Load was called for an already-loaded name.
	ErrPluginExists = errors.New("plugin already loaded")

	// ErrPluginNotFound indicates Reload/Unload named an unknown plugin.
	ErrPluginNotFound = errors.New("plugin not loaded")

	// ErrDuplicateNode indicates two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")
)

// ValidationError reports a rejected load, reload, or unload. The previous
// snapshot remains active when one is returned.
type ValidationError struct {
	Plugin string
	Err    error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.Plugin, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
