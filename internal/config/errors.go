package config

import (
	"errors"
	"fmt"
)

// ConfigError reports a configuration problem that prevents a run from
// starting: a missing test root, an unusable compiler path, a malformed
// registry or an invalid option value.
//
// ConfigError is the only harness failure that aborts a run. Problems with
// individual test cases are reported per case instead.
type ConfigError struct {
	// Field names the offending setting (e.g. "tool", "root").
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Errorf creates a ConfigError for field with a formatted message.
func Errorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a ConfigError for field wrapping err.
func Wrap(field, message string, err error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: err}
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
