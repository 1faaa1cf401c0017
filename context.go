package unwind

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/fortressi/unwind/set"
)

// sagaState represents the lifecycle state of a saga scope.
type sagaState int

const (
	stateIdle sagaState = iota
	stateActive
	stateCompensating
)

func (s sagaState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateActive:
		return "active"
	case stateCompensating:
		return "compensating"
	default:
		return "unknown"
	}
}

// Option configures a saga instance.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger attaches a structured logger to the saga's diagnostic channel.
// Verbosity and sinks are entirely the caller's; the engine defaults to a
// no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// sagaContext is the state machine shared by both execution adapters and by
// Plan.  It owns the step records and the execution log, and it holds the
// compensation algorithm, written once against the stepRecord interface.
//
// A sagaContext is single-writer: it provides no internal mutual exclusion,
// and its lists are not safe for concurrent mutation.  The owning adapter's
// caller must not issue concurrent step calls against one instance.
type sagaContext struct {
	id         uuid.UUID
	state      sagaState
	steps      []stepRecord
	executed   []StepResult
	pendingErr error
	compErrs   []error

	named     *btree.Map[string, any]
	stepNames *set.Set[string]

	trace *Trace
	log   *zap.Logger
}

func newSagaContext(opts []Option) *sagaContext {
	o := newOptions(opts)
	return &sagaContext{
		named: btree.NewMap[string, any](10),
		trace: &Trace{},
		log:   o.logger,
	}
}

// enter opens a new scope, clearing all state left over from a prior scope.
// Re-entering an instance whose scope is still open fails fast rather than
// corrupting the step lists.
func (c *sagaContext) enter() error {
	if c.state != stateIdle {
		return ErrScopeAlreadyOpen
	}

	c.id = uuid.New()
	c.steps = c.steps[:0]
	c.executed = c.executed[:0]
	c.pendingErr = nil
	c.compErrs = nil
	c.named = btree.NewMap[string, any](10)
	c.stepNames = &set.Set[string]{}
	c.trace.reset()
	c.state = stateActive

	c.log.Debug("saga scope opened", zap.String("saga_id", c.id.String()))
	return nil
}

// execute runs one step: it invokes the action and, only if the action
// succeeds, records a step record and an execution log entry.  A failed
// action records nothing for that attempt; there is nothing to undo.
func (c *sagaContext) execute(ctx context.Context, step stepRecord) (any, error) {
	if c.state != stateActive {
		return nil, ErrNotInScope
	}

	index := len(c.executed)
	name := step.label()

	if step.publishes() && c.stepNames.Contains(name) {
		return nil, DuplicateNameError(name)
	}

	c.trace.record(Event{SagaID: c.id, StepIndex: index, StepName: name, Type: EventStepStarted})
	c.log.Info("executing step",
		zap.String("saga_id", c.id.String()),
		zap.Int("step_index", index),
		zap.String("step_name", name))

	result, err := step.invoke(ctx)
	if err != nil {
		c.trace.record(Event{SagaID: c.id, StepIndex: index, StepName: name, Type: EventStepFailed, Err: err})
		c.log.Error("step failed",
			zap.String("saga_id", c.id.String()),
			zap.Int("step_index", index),
			zap.String("step_name", name),
			zap.Error(err))
		return nil, err
	}

	c.record(step, name, result)
	return result, nil
}

// record appends a step record and its execution log entry.  The entry's
// StepIndex equals the log length before the append, so indices are dense
// and match append order.  This never fails; it runs only after the action
// has already succeeded.
func (c *sagaContext) record(step stepRecord, name string, result any) {
	index := len(c.executed)
	c.steps = append(c.steps, step)
	c.executed = append(c.executed, StepResult{
		StepIndex: index,
		StepName:  name,
		Result:    result,
	})

	if step.publishes() {
		c.stepNames.Insert(name)
		c.named.Set(name, result)
	}

	c.trace.record(Event{SagaID: c.id, StepIndex: index, StepName: name, Type: EventStepSucceeded})
	c.log.Info("step completed",
		zap.String("saga_id", c.id.String()),
		zap.Int("step_index", index),
		zap.String("step_name", name))
}

// close ends the scope.  With a nil body error the scope transitions
// straight back to idle.  Otherwise the error becomes the pending failure,
// every recorded step is compensated in reverse order, and the same error is
// returned unchanged: compensation failures are demoted to the trace and
// CompensationErrors, never raised in the original failure's place.
func (c *sagaContext) close(ctx context.Context, err error) error {
	if err == nil {
		c.state = stateIdle
		c.log.Debug("saga scope closed", zap.String("saga_id", c.id.String()))
		return nil
	}

	c.pendingErr = err
	c.compensate(ctx)
	return err
}

// compensate replays compensations for every execution log entry in reverse
// insertion order.  Each entry's compensation receives the entry's result
// followed by the bundles bound at step-record time.  A failing compensation
// is captured and the rollback continues with the next (earlier) entry.
func (c *sagaContext) compensate(ctx context.Context) {
	c.state = stateCompensating
	c.log.Warn("saga failed, compensating",
		zap.String("saga_id", c.id.String()),
		zap.Int("recorded_steps", len(c.executed)),
		zap.Error(c.pendingErr))

	for i := len(c.executed) - 1; i >= 0; i-- {
		entry := c.executed[i]
		step := c.steps[entry.StepIndex]
		compName := step.compensationLabel()

		c.trace.record(Event{SagaID: c.id, StepIndex: entry.StepIndex, StepName: compName, Type: EventCompensationStarted})
		c.log.Info("compensating step",
			zap.String("saga_id", c.id.String()),
			zap.Int("step_index", entry.StepIndex),
			zap.String("compensation", compName))

		if err := step.compensateWith(ctx, entry.Result); err != nil {
			compErr := &CompensationError{StepIndex: entry.StepIndex, StepName: entry.StepName, Err: err}
			c.compErrs = append(c.compErrs, compErr)
			c.trace.record(Event{SagaID: c.id, StepIndex: entry.StepIndex, StepName: compName, Type: EventCompensationFailed, Err: err})
			c.log.Error("compensation failed",
				zap.String("saga_id", c.id.String()),
				zap.Int("step_index", entry.StepIndex),
				zap.String("compensation", compName),
				zap.Error(err))
			continue
		}

		c.trace.record(Event{SagaID: c.id, StepIndex: entry.StepIndex, StepName: compName, Type: EventCompensationSucceeded})
		c.log.Info("compensated step",
			zap.String("saga_id", c.id.String()),
			zap.Int("step_index", entry.StepIndex),
			zap.String("compensation", compName))
	}

	if len(c.compErrs) > 0 {
		c.log.Warn("compensation finished with errors",
			zap.String("saga_id", c.id.String()),
			zap.Int("errors", len(c.compErrs)))
	}
	c.state = stateIdle
}

// closePanicking compensates after a panicking scope body.  The panic value
// is preserved by the adapter, which re-raises it once compensation is done.
func (c *sagaContext) closePanicking(ctx context.Context, v any) {
	c.pendingErr = fmt.Errorf("scope body panicked: %v", v)
	c.compensate(ctx)
}

// lookup returns a published step result by name.
func (c *sagaContext) lookup(name string) (any, bool) {
	return c.named.Get(name)
}

// executedCopy returns a copy of the execution log.
func (c *sagaContext) executedCopy() []StepResult {
	return append([]StepResult(nil), c.executed...)
}

// compErrsCopy returns a copy of the captured compensation failures.
func (c *sagaContext) compErrsCopy() []error {
	return append([]error(nil), c.compErrs...)
}
