package common

import (
	"errors"
	"fmt"
)

var (
	// ErrViewerDestroyed is returned by viewer operations invoked after Destroy.
	ErrViewerDestroyed = errors.New("viewer destroyed")

	// ErrUnknownAdapter is returned when an adapter name is not present in the registry.
	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrNoPanorama is returned when a load is requested without a panorama source.
	ErrNoPanorama = errors.New("no panorama source")
)

// LoadError reports that an adapter failed to acquire or decode a panorama source.
// It is recoverable by retrying or swapping adapters.
type LoadError struct {
	Adapter string
	Source  string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("load %s: %v", e.Adapter, e.Err)
	}
	return fmt.Sprintf("load %s %q: %v", e.Adapter, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports a transient failure while producing a single frame.
type RenderError struct {
	Frame uint64
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render frame %d: %v", e.Frame, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ConfigError reports an invalid construction option.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PluginError reports that a plugin handler or teardown failed.
// Event is empty when the failure happened outside of event dispatch.
type PluginError struct {
	Plugin string
	Event  string
	Err    error
}

func (e *PluginError) Error() string {
	name := e.Plugin
	if name == "" {
		name = "<anonymous>"
	}
	if e.Event == "" {
		return fmt.Sprintf("plugin %s: %v", name, e.Err)
	}
	return fmt.Sprintf("plugin %s on %s: %v", name, e.Event, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// RecoveredError converts a value obtained from recover() into an error.
//
// Parameters:
//   - r: the recovered value
//
// Returns:
//   - error: r itself if it is an error, a formatted panic error otherwise
func RecoveredError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
