package unwind

import (
	"context"
)

// SyncSaga executes scoped sagas under the blocking calling convention:
// actions and compensations are plain functions that block the calling
// goroutine until they return and never observe a context.  Used when all
// callables are non-blocking on external signals; mixing conventions within
// one scope is unsupported, so callers with context-aware callables should
// use Saga instead.
//
// The state machine, the execution log, and the compensation algorithm are
// shared with Saga; only the invocation strategy differs.  The same
// single-writer rule applies.
type SyncSaga struct {
	core *sagaContext
}

// NewSync creates a blocking saga instance.
func NewSync(opts ...Option) *SyncSaga {
	return &SyncSaga{core: newSagaContext(opts)}
}

// Run opens a scope, invokes body, and closes the scope.  On a non-nil body
// error every recorded step is compensated in reverse order and the same
// error is returned.  If body panics, compensation runs and the panic
// resumes.
func (s *SyncSaga) Run(body func(s *SyncSaga) error) error {
	if err := s.core.enter(); err != nil {
		return err
	}

	defer func() {
		if v := recover(); v != nil {
			s.core.closePanicking(context.Background(), v)
			panic(v)
		}
	}()

	return s.core.close(context.Background(), body(s))
}

// Step executes one blocking step inside an open scope.  Semantics match
// Saga.Step: the action runs immediately, failures propagate unchanged with
// nothing recorded, successes are recorded for potential compensation.
func (s *SyncSaga) Step(action SyncActionFunc, compensation SyncCompensationFunc, opts ...StepOption) (any, error) {
	cfg := newStepConfig(opts)
	name := cfg.name
	named := name != ""
	if !named {
		name = functionName(action)
	}

	return s.core.execute(context.Background(), &SyncSagaStep{
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

// SyncStep executes one typed blocking step; the generic form of
// SyncSaga.Step.
func SyncStep[R any](s *SyncSaga, action func() (R, error), compensation func(R) error) (R, error) {
	return typedSyncStep(s, functionName(action), false, action, compensation)
}

// NamedSyncStep is SyncStep with an explicit name; the result is published
// for Lookup by later steps.
func NamedSyncStep[R any](s *SyncSaga, name string, action func() (R, error), compensation func(R) error) (R, error) {
	return typedSyncStep(s, name, true, action, compensation)
}

func typedSyncStep[R any](s *SyncSaga, name string, named bool, action func() (R, error), compensation func(R) error) (R, error) {
	var zero R

	wrappedAction := func(_ []any, _ map[string]any) (any, error) {
		return action()
	}
	wrappedCompensation := func(result any, _ []any, _ map[string]any) error {
		typed, ok := result.(R)
		if !ok {
			typed = zero
		}
		return compensation(typed)
	}

	result, err := s.core.execute(context.Background(), &SyncSagaStep{
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
func (s *SyncSaga) Executed() []StepResult {
	return s.core.executedCopy()
}

// CompensationErrors returns the compensation failures captured during the
// most recent scope's rollback.
func (s *SyncSaga) CompensationErrors() []error {
	return s.core.compErrsCopy()
}

// Trace returns the saga's diagnostic event trace.
func (s *SyncSaga) Trace() *Trace {
	return s.core.trace
}

// Lookup returns the result a named step published in the current scope.
func (s *SyncSaga) Lookup(name string) (any, bool) {
	return s.core.lookup(name)
}
