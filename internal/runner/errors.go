package runner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrStrategyNotFound covers both a missing strategy and one owned by another
// tenant; callers must not be able to tell the two apart.
var ErrStrategyNotFound = errors.New("strategy not found or access denied")

// ErrExecutionInProgress is returned when the per-strategy lock is held.
var ErrExecutionInProgress = errors.New("strategy execution already in progress")

// ValidationError lists every failing request field as "<field>: <reason>".
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Details, "; ")
}

// InvalidStateError reports a strategy whose status does not allow execution.
type InvalidStateError struct {
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("strategy cannot be executed in status %q", e.Status)
}

// ExecutionError is a pipeline abort after an execution id was assigned.
type ExecutionError struct {
	ExecutionID uuid.UUID
	StrategyID  uuid.UUID
	Elapsed     time.Duration
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution %s: %v", e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// panicError carries a recovered panic value.
type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
