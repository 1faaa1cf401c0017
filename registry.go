package unwind

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// ActionName identifies a registered action pair.
type ActionName string

// ActionPair couples an action with its compensation under a stable name.
type ActionPair struct {
	Name         ActionName
	Action       ActionFunc
	Compensation CompensationFunc
}

// ActionRegistry is a registry of reusable action pairs shared across sagas.
//
// Pairs are identified by their ActionName.  Plans reference registered
// pairs by name (see Plan.AddStepRef), which lets saga construction be
// driven by data rather than by direct function references.  The registry is
// safe for concurrent use.
type ActionRegistry struct {
	actions *xsync.MapOf[ActionName, ActionPair]
}

// NewActionRegistry creates a new ActionRegistry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{
		actions: xsync.NewMapOf[ActionName, ActionPair](),
	}
}

// Register adds an action pair to the registry.
func (r *ActionRegistry) Register(pair ActionPair) error {
	if pair.Name == "" {
		return fmt.Errorf("action pair must be named")
	}
	if pair.Action == nil || pair.Compensation == nil {
		return fmt.Errorf("action pair %q must have both an action and a compensation", pair.Name)
	}
	if _, ok := r.actions.Load(pair.Name); ok {
		return fmt.Errorf("action with name '%s' already registered", pair.Name)
	}
	r.actions.Store(pair.Name, pair)
	return nil
}

// Get retrieves an action pair from the registry by its name.
func (r *ActionRegistry) Get(name ActionName) (ActionPair, error) {
	pair, ok := r.actions.Load(name)
	if !ok {
		return ActionPair{}, NotFoundError(name)
	}
	return pair, nil
}
