package persondir

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDirectory is returned by Init when no directory source is configured.
	ErrNoDirectory = errors.New("persondir: no directory source configured")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("persondir: invalid configuration")

	// ErrRecordLocked is returned by every Record mutator once the record is locked.
	ErrRecordLocked = errors.New("persondir: record is locked")

	// ErrInvalidValue is returned when a value is neither a string nor a []byte.
	ErrInvalidValue = errors.New("persondir: attribute values must be string or []byte")

	// ErrPartialResults is wrapped by directories that could only return part of a result,
	// typically because the server answered with referrals.
	ErrPartialResults = errors.New("persondir: partial results")

	// ErrEntryNotFound is wrapped by directories when the search base or the looked up DN does not exist.
	ErrEntryNotFound = errors.New("persondir: entry not found")

	// ErrProcessor wraps every failure raised from inside a processor chain.
	ErrProcessor = errors.New("persondir: processor failed")
)

// ConfigError describes one invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a ConfigError for field.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// ProcessorError records which element of the chain failed.
type ProcessorError struct {
	Index int
	Name  string
	Cause error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %d (%s) failed: %v", e.Index, e.Name, e.Cause)
}

// Is reports ErrProcessor so callers can match the whole class without knowing the index.
func (e *ProcessorError) Is(target error) bool {
	return target == ErrProcessor
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}
