package passes

import (
	"errors"
	"fmt"

	"github.com/roach88/blocksched/internal/durations"
)

// PassError represents a fatal error raised by a scheduling or padding pass.
//
// Pass errors include:
//   - Not scheduled: the padder ran before any schedule was published
//   - Unscheduled node: the graph changed after it was scheduled
//   - Unsupported condition: a classical condition on a kind that cannot carry one
//   - Unmapped wire layout: the graph is not laid out on physical qubits
//   - Duration unbound / missing: an instruction has no usable length
//
// No pass publishes partial results when it returns a PassError.
type PassError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Graph names the graph being processed.
	Graph string

	// Node describes the offending node, if any.
	Node string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes pass errors.
type ErrorCode string

const (
	// ErrCodeNotScheduled indicates the padder found no schedule.
	ErrCodeNotScheduled ErrorCode = "NOT_SCHEDULED"

	// ErrCodeUnscheduledNode indicates a node is missing from the schedule.
	ErrCodeUnscheduledNode ErrorCode = "UNSCHEDULED_NODE"

	// ErrCodeUnsupportedCondition indicates a condition on a kind that
	// cannot be conditioned.
	ErrCodeUnsupportedCondition ErrorCode = "UNSUPPORTED_CONDITION"

	// ErrCodeUnmappedWireLayout indicates the graph is not on physical qubits.
	ErrCodeUnmappedWireLayout ErrorCode = "UNMAPPED_WIRE_LAYOUT"

	// ErrCodeDurationUnbound indicates a symbolic duration.
	ErrCodeDurationUnbound ErrorCode = "DURATION_UNBOUND"

	// ErrCodeDurationMissing indicates no duration could be found.
	ErrCodeDurationMissing ErrorCode = "DURATION_MISSING"

	// ErrCodeUnsupportedKind indicates a node kind the pass has no handler for.
	ErrCodeUnsupportedKind ErrorCode = "UNSUPPORTED_KIND"
)

// Error implements the error interface.
func (e *PassError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Graph != "" && e.Node != "" {
		msg = fmt.Sprintf("%s (graph=%s, node=%s)", msg, e.Graph, e.Node)
	} else if e.Graph != "" {
		msg = fmt.Sprintf("%s (graph=%s)", msg, e.Graph)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PassError) Unwrap() error { return e.Err }

// NewNotScheduledError creates a PassError for a padder run without a
// schedule. pass names the pass that must run first.
func NewNotScheduledError(graph, pass string) *PassError {
	return &PassError{
		Code:    ErrCodeNotScheduled,
		Message: fmt.Sprintf("graph %q is not scheduled; run %s first", graph, pass),
		Graph:   graph,
		Details: map[string]string{"expected_pass": pass},
	}
}

// NewUnscheduledNodeError creates a PassError for a node with no schedule
// entry, most likely added after the graph was scheduled.
func NewUnscheduledNodeError(graph, node, what string) *PassError {
	return &PassError{
		Code:    ErrCodeUnscheduledNode,
		Message: what + "; schedule the graph again after transforming it",
		Graph:   graph,
		Node:    node,
	}
}

// NewUnsupportedConditionError creates a PassError for a conditioned node of
// a kind that cannot carry a condition.
func NewUnsupportedConditionError(graph, node, kind string) *PassError {
	return &PassError{
		Code:    ErrCodeUnsupportedCondition,
		Message: fmt.Sprintf("conditional %s is not supported by the scheduler", kind),
		Graph:   graph,
		Node:    node,
	}
}

// NewUnmappedWireLayoutError creates a PassError for a graph that is not
// laid out on a single physical register.
func NewUnmappedWireLayoutError(graph string, registers int) *PassError {
	return &PassError{
		Code:    ErrCodeUnmappedWireLayout,
		Message: "scheduling runs on physical circuits only (one quantum register named \"q\")",
		Graph:   graph,
		Details: map[string]string{"quantum_registers": fmt.Sprintf("%d", registers)},
	}
}

// NewDurationUnboundError creates a PassError for a symbolic duration.
func NewDurationUnboundError(graph, node, symbol string) *PassError {
	return &PassError{
		Code:    ErrCodeDurationUnbound,
		Message: fmt.Sprintf("parameterized duration (%s) is not bounded", symbol),
		Graph:   graph,
		Node:    node,
	}
}

// NewDurationMissingError creates a PassError for an instruction without a
// duration. cause is the failed lookup, if any.
func NewDurationMissingError(graph, node string, cause error) *PassError {
	return &PassError{
		Code:    ErrCodeDurationMissing,
		Message: "duration not found",
		Graph:   graph,
		Node:    node,
		Err:     cause,
	}
}

// NewUnsupportedKindError creates a PassError for a node kind with no handler.
func NewUnsupportedKindError(graph, node, kind string) *PassError {
	return &PassError{
		Code:    ErrCodeUnsupportedKind,
		Message: fmt.Sprintf("no handler for operation kind %s", kind),
		Graph:   graph,
		Node:    node,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsNotScheduled returns true if the error is a not-scheduled error.
// Uses errors.As to handle wrapped errors.
func IsNotScheduled(err error) bool { return hasCode(err, ErrCodeNotScheduled) }

// IsUnscheduledNode returns true if the error is an unscheduled-node error.
func IsUnscheduledNode(err error) bool { return hasCode(err, ErrCodeUnscheduledNode) }

// IsUnsupportedCondition returns true if the error is an unsupported
// condition error.
func IsUnsupportedCondition(err error) bool { return hasCode(err, ErrCodeUnsupportedCondition) }

// IsUnmappedWireLayout returns true if the error is a layout error.
func IsUnmappedWireLayout(err error) bool { return hasCode(err, ErrCodeUnmappedWireLayout) }

// IsDurationUnbound returns true if the error is an unbound duration error.
func IsDurationUnbound(err error) bool { return hasCode(err, ErrCodeDurationUnbound) }

// IsDurationMissing returns true if the error is a missing duration, raised
// either by a pass or by the duration table.
func IsDurationMissing(err error) bool {
	return hasCode(err, ErrCodeDurationMissing) || durations.IsDurationMissing(err)
}

// IsUnsupportedTimeUnit returns true if a duration could not be used because
// of its time unit.
func IsUnsupportedTimeUnit(err error) bool { return durations.IsUnsupportedTimeUnit(err) }
