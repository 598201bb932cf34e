package engine

import (
	"errors"
	"fmt"
)

// RunError represents an error detected while preparing, running or
// replaying a scheduling run.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, when one has been assigned.
	RunID string

	// Details contains additional context.
	Details map[string]string
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeInvalidPolicy indicates a policy configuration that cannot be
	// built.
	ErrCodeInvalidPolicy RunErrorCode = "INVALID_POLICY"

	// ErrCodeNodeQuota indicates a circuit larger than the engine accepts.
	ErrCodeNodeQuota RunErrorCode = "NODE_QUOTA_EXCEEDED"

	// ErrCodeReplayMismatch indicates a replayed run produced different
	// fingerprints than the recorded one.
	ErrCodeReplayMismatch RunErrorCode = "REPLAY_MISMATCH"

	// ErrCodeCorruptRun indicates a recorded run whose source or options
	// can no longer be decoded.
	ErrCodeCorruptRun RunErrorCode = "CORRUPT_RUN"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsInvalidPolicy returns true if err is an invalid policy error.
func IsInvalidPolicy(err error) bool { return hasCode(err, ErrCodeInvalidPolicy) }

// IsNodeQuota returns true if err is a node quota error.
func IsNodeQuota(err error) bool { return hasCode(err, ErrCodeNodeQuota) }

// IsReplayMismatch returns true if err is a replay mismatch error.
// Uses errors.As to handle wrapped errors.
func IsReplayMismatch(err error) bool { return hasCode(err, ErrCodeReplayMismatch) }

// IsCorruptRun returns true if err reports an undecodable recorded run.
func IsCorruptRun(err error) bool { return hasCode(err, ErrCodeCorruptRun) }

// NewInvalidPolicyError creates an invalid policy error.
func NewInvalidPolicyError(policy, message string) *RunError {
	return &RunError{
		Code:    ErrCodeInvalidPolicy,
		Message: message,
		Details: map[string]string{"policy": policy},
	}
}

// NewReplayMismatchError creates a replay mismatch error listing the
// fingerprints that differ.
func NewReplayMismatchError(runID string, fields []string) *RunError {
	return &RunError{
		Code:    ErrCodeReplayMismatch,
		Message: fmt.Sprintf("replay differs in %v", fields),
		RunID:   runID,
	}
}

// NewCorruptRunError creates an error for a recorded run that cannot be
// decoded.
func NewCorruptRunError(runID, what string, cause error) *RunError {
	return &RunError{
		Code:    ErrCodeCorruptRun,
		Message: fmt.Sprintf("%s: %v", what, cause),
		RunID:   runID,
	}
}
