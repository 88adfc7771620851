package common

import (
	"fmt"
	"strings"
)

// ConfigError reports missing required configuration. Fatal at startup.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// InitError reports a backend client that could not be constructed.
// Fatal, surfaced to the operator.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
