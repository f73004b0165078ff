package config

import "fmt"

// ConnectionNotFoundError is returned when an alias is not registered.
type ConnectionNotFoundError struct {
	Alias string
}

func (e *ConnectionNotFoundError) Error() string {
	return fmt.Sprintf("connection not found: %s", e.Alias)
}

// InvalidValueError reports a configuration value outside its allowed set.
type InvalidValueError struct {
	Key   string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Key)
}

// WorkspaceConfigError wraps a failure reading a workspace config file.
type WorkspaceConfigError struct {
	Path string
	Err  error
}

func (e *WorkspaceConfigError) Error() string {
	return fmt.Sprintf("workspace config %s: %v", e.Path, e.Err)
}

func (e *WorkspaceConfigError) Unwrap() error {
	return e.Err
}
