package unwind

import (
	"errors"
	"fmt"
)

// ErrNotInScope indicates a step was executed without an open saga scope.
var ErrNotInScope = errors.New("step executed outside an open saga scope")

// ErrScopeAlreadyOpen indicates a scope was opened on a saga instance whose
// previous scope has not closed yet.
var ErrScopeAlreadyOpen = errors.New("saga scope already open")

// ErrActionNotFound indicates a lookup for an unregistered action.
var ErrActionNotFound = errors.New("action not registered")

// ErrDuplicateStepName indicates two steps in one scope published results
// under the same name.
var ErrDuplicateStepName = errors.New("duplicate step name")

// ErrEmptyPlan indicates an attempt to execute a plan with no steps.
var ErrEmptyPlan = errors.New("plan has no steps")

// errMissingCallable indicates a step declared without both callables.
var errMissingCallable = errors.New("step requires both an action and a compensation")

// CompensationError records a compensation that failed during rollback.
// Compensation failures never propagate in place of the original failure;
// they are collected and exposed via CompensationErrors.
type CompensationError struct {
	StepIndex int
	StepName  string
	Err       error
}

// Error implements the error interface for CompensationError.
func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation for step %d (%s) failed: %v", e.StepIndex, e.StepName, e.Err)
}

// Unwrap returns the underlying compensation failure.
func (e *CompensationError) Unwrap() error {
	return e.Err
}

// NotFoundError wraps ErrActionNotFound with the missing action's name.
func NotFoundError(name ActionName) error {
	return fmt.Errorf("action %q: %w", name, ErrActionNotFound)
}

// DuplicateNameError wraps ErrDuplicateStepName with the offending name.
func DuplicateNameError(name string) error {
	return fmt.Errorf("step name %q: %w", name, ErrDuplicateStepName)
}
