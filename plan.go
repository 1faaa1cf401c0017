package unwind

import (
	"context"

	"github.com/fortressi/unwind/set"
)

// Plan executes a saga whose steps are declared up front rather than inside
// a scope body.  Steps are added with AddStep or AddStepRef and executed in
// insertion order by Execute; the failure and compensation semantics are the
// shared engine's.  A Plan may be executed repeatedly; each Execute starts a
// fresh scope.
//
// Plans use the context-aware calling convention throughout.
type Plan struct {
	core      *sagaContext
	pending   []*SagaStep
	planNames *set.Set[string]
}

// NewPlan creates an empty plan.
func NewPlan(opts ...Option) *Plan {
	return &Plan{
		core:      newSagaContext(opts),
		planNames: &set.Set[string]{},
	}
}

// AddStep appends a step to the plan.  The argument bundles bound here are
// the exact ones used when Execute invokes the action and, if needed, the
// compensation.
func (p *Plan) AddStep(action ActionFunc, compensation CompensationFunc, opts ...StepOption) error {
	if action == nil || compensation == nil {
		return errMissingCallable
	}

	cfg := newStepConfig(opts)
	name := cfg.name
	named := name != ""
	if !named {
		name = functionName(action)
	}
	if named {
		if p.planNames.Contains(name) {
			return DuplicateNameError(name)
		}
		p.planNames.Insert(name)
	}

	p.pending = append(p.pending, &SagaStep{
		Action:             action,
		Compensation:       compensation,
		ActionArgs:         cfg.actionArgs,
		ActionKwargs:       cfg.actionKwargs,
		CompensationArgs:   cfg.compensationArgs,
		CompensationKwargs: cfg.compensationKwargs,
		name:               name,
		named:              named,
	})
	return nil
}

// AddStepRef appends a step whose action pair is looked up in a registry.
// Unless overridden with WithName, the step is named after the registered
// pair.
func (p *Plan) AddStepRef(registry *ActionRegistry, name ActionName, opts ...StepOption) error {
	pair, err := registry.Get(name)
	if err != nil {
		return err
	}
	opts = append([]StepOption{WithName(string(name))}, opts...)
	return p.AddStep(pair.Action, pair.Compensation, opts...)
}

// Execute runs every step in insertion order.  If a step's action fails, all
// previously executed steps are compensated in reverse order and the action's
// error is returned unchanged.  On success it returns the execution log, one
// entry per step.
func (p *Plan) Execute(ctx context.Context) ([]StepResult, error) {
	if len(p.pending) == 0 {
		return nil, ErrEmptyPlan
	}
	if err := p.core.enter(); err != nil {
		return nil, err
	}

	for _, step := range p.pending {
		if _, err := p.core.execute(ctx, step); err != nil {
			return nil, p.core.close(context.WithoutCancel(ctx), err)
		}
	}

	results := p.core.executedCopy()
	return results, p.core.close(ctx, nil)
}

// Reset clears the plan's steps so the instance can be rebuilt.
func (p *Plan) Reset() {
	p.pending = nil
	p.planNames = &set.Set[string]{}
}

// Len returns the number of steps in the plan.
func (p *Plan) Len() int {
	return len(p.pending)
}

// Executed returns a copy of the execution log for the most recent Execute.
func (p *Plan) Executed() []StepResult {
	return p.core.executedCopy()
}

// CompensationErrors returns the compensation failures captured during the
// most recent Execute's rollback.
func (p *Plan) CompensationErrors() []error {
	return p.core.compErrsCopy()
}

// Trace returns the plan's diagnostic event trace.
func (p *Plan) Trace() *Trace {
	return p.core.trace
}

// Lookup returns the result a named step published during the most recent
// Execute.
func (p *Plan) Lookup(name string) (any, bool) {
	return p.core.lookup(name)
}
