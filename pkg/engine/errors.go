package engine

import (
	"errors"
	"fmt"
)

// ErrTickInProgress is returned when Tick is called while another tick is
// still running. The frame is dropped.
var ErrTickInProgress = errors.New("engine: tick in progress")

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("engine config %s: %s", e.Field, e.Message)
}
