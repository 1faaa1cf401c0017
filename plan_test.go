package unwind

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanExecutesStepsInOrder(t *testing.T) {
	var order []string

	plan := NewPlan()

	addStep := func(name string) {
		err := plan.AddStep(
			func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
				order = append(order, name)
				return name + "-result", nil
			},
			func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
				return nil
			},
			WithName(name),
		)
		require.NoError(t, err)
	}

	addStep("validate")
	addStep("charge")
	addStep("ship")
	require.Equal(t, 3, plan.Len())

	results, err := plan.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"validate", "charge", "ship"}, order)
	require.Len(t, results, 3)
	assert.Equal(t, "validate-result", results[0].Result)
	assert.Equal(t, 0, results[0].StepIndex)
	assert.Equal(t, "ship", results[2].StepName)

	// Named results stay addressable after a successful run.
	v, found := plan.Lookup("charge")
	require.True(t, found)
	assert.Equal(t, "charge-result", v)
}

func TestPlanFailureCompensatesExecutedSteps(t *testing.T) {
	var compensations []string
	failure := errors.New("charge declined")

	plan := NewPlan()

	require.NoError(t, plan.AddStep(
		func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return "order", nil
		},
		func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
			compensations = append(compensations, "cancel_order")
			return nil
		},
	))
	require.NoError(t, plan.AddStep(
		func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return "reservation", nil
		},
		func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
			compensations = append(compensations, "release_inventory")
			return nil
		},
	))
	require.NoError(t, plan.AddStep(
		func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return nil, failure
		},
		func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
			compensations = append(compensations, "refund")
			return nil
		},
	))

	results, err := plan.Execute(context.Background())
	require.ErrorIs(t, err, failure)
	assert.Nil(t, results)
	assert.Equal(t, []string{"release_inventory", "cancel_order"}, compensations)
	assert.Empty(t, plan.CompensationErrors())
}

func TestPlanIsReexecutable(t *testing.T) {
	runs := 0

	plan := NewPlan()
	require.NoError(t, plan.AddStep(
		func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			runs++
			return runs, nil
		},
		func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
			return nil
		},
	))

	_, err := plan.Execute(context.Background())
	require.NoError(t, err)
	results, err := plan.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, runs)
	require.Len(t, results, 1, "each execution starts a fresh scope")
	assert.Equal(t, 2, results[0].Result)
}

func TestPlanEmptyFailsFast(t *testing.T) {
	plan := NewPlan()
	_, err := plan.Execute(context.Background())
	require.ErrorIs(t, err, ErrEmptyPlan)
}

func TestPlanRejectsNilCallables(t *testing.T) {
	plan := NewPlan()
	err := plan.AddStep(nil, nil)
	require.Error(t, err)
	assert.Zero(t, plan.Len())
}

func TestPlanRejectsDuplicateNames(t *testing.T) {
	plan := NewPlan()
	action := func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return nil, nil
	}
	compensation := func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
		return nil
	}

	require.NoError(t, plan.AddStep(action, compensation, WithName("step")))
	err := plan.AddStep(action, compensation, WithName("step"))
	require.ErrorIs(t, err, ErrDuplicateStepName)

	plan.Reset()
	require.NoError(t, plan.AddStep(action, compensation, WithName("step")))
}

func TestPlanWithRegistryReferences(t *testing.T) {
	var compensations []string
	failure := errors.New("reservation rejected")

	registry := NewActionRegistry()
	require.NoError(t, registry.Register(ActionPair{
		Name: "create_order",
		Action: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return &TestOrder{ID: args[0].(string)}, nil
		},
		Compensation: func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
			compensations = append(compensations, "cancel_"+result.(*TestOrder).ID)
			return nil
		},
	}))
	require.NoError(t, registry.Register(ActionPair{
		Name: "reserve_inventory",
		Action: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return nil, failure
		},
		Compensation: func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
			compensations = append(compensations, "release")
			return nil
		},
	}))

	plan := NewPlan()
	require.NoError(t, plan.AddStepRef(registry, "create_order", WithActionArgs("O9")))
	require.NoError(t, plan.AddStepRef(registry, "reserve_inventory"))

	_, err := plan.Execute(context.Background())
	require.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"cancel_O9"}, compensations)

	err = plan.AddStepRef(registry, "missing")
	require.ErrorIs(t, err, ErrActionNotFound)
}
