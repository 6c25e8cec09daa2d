package logging

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLevel is returned when a level name is not one of the seven known levels.
	ErrInvalidLevel = errors.New("invalid log level")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid logger configuration")

	// ErrLogDirectory is returned when the log directory cannot be created.
	ErrLogDirectory = errors.New("cannot create log directory")
)

// ConfigError reports a problem found while building a Logger.
type ConfigError struct {
	Op      string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("logging: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("logging: %s: %s", e.Op, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
