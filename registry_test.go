package unwind

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testActionPair(name ActionName) ActionPair {
	return ActionPair{
		Name: name,
		Action: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return string(name), nil
		},
		Compensation: func(ctx context.Context, result any, args []any, kwargs map[string]any) error {
			return nil
		},
	}
}

func TestActionRegistryRegisterAndGet(t *testing.T) {
	registry := NewActionRegistry()

	require.NoError(t, registry.Register(testActionPair("create_order")))

	pair, err := registry.Get("create_order")
	require.NoError(t, err)
	assert.Equal(t, ActionName("create_order"), pair.Name)

	result, err := pair.Action(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "create_order", result)
}

func TestActionRegistryRejectsDuplicates(t *testing.T) {
	registry := NewActionRegistry()

	require.NoError(t, registry.Register(testActionPair("charge")))
	err := registry.Register(testActionPair("charge"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestActionRegistryValidatesPairs(t *testing.T) {
	registry := NewActionRegistry()

	assert.Error(t, registry.Register(ActionPair{}))
	assert.Error(t, registry.Register(ActionPair{Name: "half", Action: testActionPair("half").Action}))
}

func TestActionRegistryGetMissing(t *testing.T) {
	registry := NewActionRegistry()

	_, err := registry.Get("nope")
	require.ErrorIs(t, err, ErrActionNotFound)
}
