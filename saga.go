package unwind

import (
	"context"
)

// Saga executes scoped sagas under the context-aware calling convention:
// every action and every compensation receives a context.Context and may
// block on I/O or observe cancellation through it.  All steps in a scope use
// this convention; for plain blocking callables use SyncSaga instead.  The
// engine never introspects callables to pick a convention per step.
//
// A Saga is reusable across sequential scopes.  It is single-writer: Run and
// Step must not be called concurrently on one instance from more than one
// goroutine.
type Saga struct {
	core *sagaContext
}

// New creates a context-aware saga instance.
func New(opts ...Option) *Saga {
	return &Saga{core: newSagaContext(opts)}
}

// Run opens a scope, invokes body, and closes the scope.  If body returns an
// error (including a context cancellation it chose to surface), every step
// recorded so far is compensated in reverse order and the same error is
// returned; Run never converts or suppresses the body's failure.  If body
// panics, compensation runs and the panic resumes.
//
// Compensation runs under context.WithoutCancel(ctx) so a cancelled scope
// cannot starve its own rollback.
func (s *Saga) Run(ctx context.Context, body func(ctx context.Context, s *Saga) error) error {
	if err := s.core.enter(); err != nil {
		return err
	}

	defer func() {
		if v := recover(); v != nil {
			s.core.closePanicking(context.WithoutCancel(ctx), v)
			panic(v)
		}
	}()

	return s.core.close(context.WithoutCancel(ctx), body(ctx, s))
}

// Step executes one step inside an open scope.  The action runs immediately
// with the bound argument bundles; on success the step is recorded for
// potential compensation and the action's result is returned.  On failure
// the action's error propagates unchanged and nothing is recorded for the
// attempt: a step that never succeeded has nothing to undo.
func (s *Saga) Step(ctx context.Context, action ActionFunc, compensation CompensationFunc, opts ...StepOption) (any, error) {
	cfg := newStepConfig(opts)
	name := cfg.name
	named := name != ""
	if !named {
		name = functionName(action)
	}

	return s.core.execute(ctx, &SagaStep{
		Action:             action,
		Compensation:       compensation,
		ActionArgs:         cfg.actionArgs,
		ActionKwargs:       cfg.actionKwargs,
		CompensationArgs:   cfg.compensationArgs,
		CompensationKwargs: cfg.compensationKwargs,
		name:               name,
		named:              named,
	})
}

// Step executes one typed step inside an open scope.  It is the generic
// form of Saga.Step for callers that want the action's result type to flow
// through to the caller and into the compensation's first argument with
// compile-time safety; arguments are captured by the closures instead of
// bound as bundles.
func Step[R any](ctx context.Context, s *Saga, action func(context.Context) (R, error), compensation func(context.Context, R) error) (R, error) {
	return typedStep(ctx, s, functionName(action), false, action, compensation)
}

// NamedStep is Step with an explicit name.  The name is used in diagnostics
// and publishes the result for Lookup by later steps.
func NamedStep[R any](ctx context.Context, s *Saga, name string, action func(context.Context) (R, error), compensation func(context.Context, R) error) (R, error) {
	return typedStep(ctx, s, name, true, action, compensation)
}

func typedStep[R any](ctx context.Context, s *Saga, name string, named bool, action func(context.Context) (R, error), compensation func(context.Context, R) error) (R, error) {
	var zero R

	wrappedAction := func(ctx context.Context, _ []any, _ map[string]any) (any, error) {
		return action(ctx)
	}
	wrappedCompensation := func(ctx context.Context, result any, _ []any, _ map[string]any) error {
		typed, ok := result.(R)
		if !ok {
			// The engine only ever hands back what the action returned.
			typed = zero
		}
		return compensation(ctx, typed)
	}

	result, err := s.core.execute(ctx, &SagaStep{
		Action:             wrappedAction,
		Compensation:       wrappedCompensation,
		ActionArgs:         []any{},
		ActionKwargs:       map[string]any{},
		CompensationArgs:   []any{},
		CompensationKwargs: map[string]any{},
		name:               name,
		named:              named,
	})
	if err != nil {
		return zero, err
	}
	typed, _ := result.(R)
	return typed, nil
}

// Executed returns a copy of the execution log for the current or most
// recent scope.
func (s *Saga) Executed() []StepResult {
	return s.core.executedCopy()
}

// CompensationErrors returns the compensation failures captured during the
// most recent scope's rollback.  Entries are *CompensationError values.
func (s *Saga) CompensationErrors() []error {
	return s.core.compErrsCopy()
}

// Trace returns the saga's diagnostic event trace.
func (s *Saga) Trace() *Trace {
	return s.core.trace
}

// Lookup returns the result a named step published in the current scope.
func (s *Saga) Lookup(name string) (any, bool) {
	return s.core.lookup(name)
}

// resultSource is anything that can resolve published step results by name.
type resultSource interface {
	Lookup(name string) (any, bool)
}

// LookupTyped retrieves a published step result with a type assertion.
// Returns the typed result and true if found and the type matches, or the
// zero value and false otherwise.
func LookupTyped[R any](src resultSource, name string) (R, bool) {
	var zero R
	value, found := src.Lookup(name)
	if !found {
		return zero, false
	}
	typed, ok := value.(R)
	if !ok {
		return zero, false
	}
	return typed, true
}
