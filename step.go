package unwind

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// anonymousName is the diagnostic name used when a step's action has no
// resolvable function symbol.
const anonymousName = "anonymous"

// ActionFunc is the context-aware calling convention for saga actions.
// The argument bundles are the ones bound to the step with WithActionArgs
// and WithActionKwargs; both are empty (never nil) when unbound.
type ActionFunc func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// CompensationFunc is the context-aware calling convention for saga
// compensations.  The first argument after the context is always the result
// the compensated action returned; args and kwargs are the extra bundles
// bound with WithCompensationArgs and WithCompensationKwargs.
type CompensationFunc func(ctx context.Context, result any, args []any, kwargs map[string]any) error

// SyncActionFunc is the blocking calling convention for saga actions.
type SyncActionFunc func(args []any, kwargs map[string]any) (any, error)

// SyncCompensationFunc is the blocking calling convention for saga
// compensations.
type SyncCompensationFunc func(result any, args []any, kwargs map[string]any) error

// StepResult records one successful action invocation.  StepIndex is the
// 0-based position in the scope's step sequence, StepName the diagnostic
// name, and Result the value the action returned.
type StepResult struct {
	StepIndex int
	StepName  string
	Result    any
}

// stepRecord is the invocation-strategy seam between the shared saga
// context and the two execution adapters.  The compensation algorithm is
// written once against this interface; SagaStep supplies the context-aware
// convention and SyncSagaStep the blocking one.
type stepRecord interface {
	invoke(ctx context.Context) (any, error)
	compensateWith(ctx context.Context, result any) error
	label() string
	compensationLabel() string
	// publishes reports whether the step's result should be published
	// under its label for lookup by later steps.
	publishes() bool
}

// SagaStep describes one context-aware step: the action, its compensation,
// and the exact argument bundles each will be called with.  Records are
// never mutated after they are appended to a scope.
type SagaStep struct {
	Action             ActionFunc
	Compensation       CompensationFunc
	ActionArgs         []any
	ActionKwargs       map[string]any
	CompensationArgs   []any
	CompensationKwargs map[string]any

	name  string
	named bool
}

func (s *SagaStep) invoke(ctx context.Context) (any, error) {
	return s.Action(ctx, s.ActionArgs, s.ActionKwargs)
}

func (s *SagaStep) compensateWith(ctx context.Context, result any) error {
	return s.Compensation(ctx, result, s.CompensationArgs, s.CompensationKwargs)
}

func (s *SagaStep) label() string { return s.name }

func (s *SagaStep) compensationLabel() string { return functionName(s.Compensation) }

func (s *SagaStep) publishes() bool { return s.named }

// SyncSagaStep is the blocking counterpart of SagaStep.  Its action and
// compensation never observe a context; invocation blocks the calling
// goroutine until the callable returns.
type SyncSagaStep struct {
	Action             SyncActionFunc
	Compensation       SyncCompensationFunc
	ActionArgs         []any
	ActionKwargs       map[string]any
	CompensationArgs   []any
	CompensationKwargs map[string]any

	name  string
	named bool
}

func (s *SyncSagaStep) invoke(_ context.Context) (any, error) {
	return s.Action(s.ActionArgs, s.ActionKwargs)
}

func (s *SyncSagaStep) compensateWith(_ context.Context, result any) error {
	return s.Compensation(result, s.CompensationArgs, s.CompensationKwargs)
}

func (s *SyncSagaStep) label() string { return s.name }

func (s *SyncSagaStep) compensationLabel() string { return functionName(s.Compensation) }

func (s *SyncSagaStep) publishes() bool { return s.named }

// stepConfig collects the per-step bindings.  Every config starts from
// freshly-allocated empty bundles so steps can never alias each other's
// arguments.
type stepConfig struct {
	actionArgs         []any
	actionKwargs       map[string]any
	compensationArgs   []any
	compensationKwargs map[string]any
	name               string
}

func newStepConfig(opts []StepOption) stepConfig {
	cfg := stepConfig{
		actionArgs:         []any{},
		actionKwargs:       map[string]any{},
		compensationArgs:   []any{},
		compensationKwargs: map[string]any{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// StepOption binds arguments or a name to a single step.
type StepOption func(*stepConfig)

// WithActionArgs binds positional arguments for the action invocation.
func WithActionArgs(args ...any) StepOption {
	return func(cfg *stepConfig) { cfg.actionArgs = args }
}

// WithActionKwargs binds keyword arguments for the action invocation.
func WithActionKwargs(kwargs map[string]any) StepOption {
	return func(cfg *stepConfig) { cfg.actionKwargs = kwargs }
}

// WithCompensationArgs binds extra positional arguments appended to the
// compensation call after the action's result.
func WithCompensationArgs(args ...any) StepOption {
	return func(cfg *stepConfig) { cfg.compensationArgs = args }
}

// WithCompensationKwargs binds keyword arguments for the compensation call.
// They are never merged with the action's keyword arguments.
func WithCompensationKwargs(kwargs map[string]any) StepOption {
	return func(cfg *stepConfig) { cfg.compensationKwargs = kwargs }
}

// WithName names the step.  The name replaces the derived diagnostic name
// and publishes the step's result for Lookup by later steps.  Names must be
// unique within a scope.
func WithName(name string) StepOption {
	return func(cfg *stepConfig) { cfg.name = name }
}

// functionName resolves a diagnostic name for a callable, falling back to
// anonymousName for closures and nil values.
func functionName(fn any) string {
	if fn == nil {
		return anonymousName
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return anonymousName
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return anonymousName
	}
	name := rf.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	// Method values show up as pkg.Type.Method-fm.
	name = strings.TrimSuffix(name, "-fm")
	if name == "" {
		return anonymousName
	}
	return name
}
