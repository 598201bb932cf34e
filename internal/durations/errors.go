package durations

import (
	"errors"
	"fmt"
)

// DurationError represents a failed duration lookup or table update.
type DurationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the instruction name.
	Name string

	// Qubits are the wires of the lookup, nil for name-only keys.
	Qubits []int

	// Unit is the offending time unit (for unit errors).
	Unit string
}

// ErrorCode categorizes duration errors.
type ErrorCode string

const (
	// ErrCodeDurationMissing indicates no entry matches the lookup key.
	ErrCodeDurationMissing ErrorCode = "DURATION_MISSING"

	// ErrCodeUnsupportedTimeUnit indicates an entry in a unit that cannot be
	// converted or patched.
	ErrCodeUnsupportedTimeUnit ErrorCode = "UNSUPPORTED_TIME_UNIT"
)

// Error implements the error interface.
func (e *DurationError) Error() string {
	if e.Qubits != nil {
		return fmt.Sprintf("%s: %s (instruction=%s, qubits=%v)", e.Code, e.Message, e.Name, e.Qubits)
	}
	return fmt.Sprintf("%s: %s (instruction=%s)", e.Code, e.Message, e.Name)
}

// NewDurationMissingError creates a DurationError for a failed lookup.
func NewDurationMissingError(name string, qubits []int) *DurationError {
	return &DurationError{
		Code:    ErrCodeDurationMissing,
		Message: "no duration entry for instruction",
		Name:    name,
		Qubits:  qubits,
	}
}

// NewUnsupportedTimeUnitError creates a DurationError for an entry whose unit
// cannot be used.
func NewUnsupportedTimeUnitError(name string, qubits []int, unit, reason string) *DurationError {
	return &DurationError{
		Code:    ErrCodeUnsupportedTimeUnit,
		Message: reason,
		Name:    name,
		Qubits:  qubits,
		Unit:    unit,
	}
}

// IsDurationMissing returns true if the error is a missing-entry error.
// Uses errors.As to handle wrapped errors.
func IsDurationMissing(err error) bool {
	var de *DurationError
	if errors.As(err, &de) {
		return de.Code == ErrCodeDurationMissing
	}
	return false
}

// IsUnsupportedTimeUnit returns true if the error is a time-unit error.
func IsUnsupportedTimeUnit(err error) bool {
	var de *DurationError
	if errors.As(err, &de) {
		return de.Code == ErrCodeUnsupportedTimeUnit
	}
	return false
}
