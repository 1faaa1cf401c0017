package unwind

// Package unwind implements scoped sagas in Go.
//
// A saga is a sequence of local operations ("actions"), each paired with a
// compensating operation that semantically undoes its effect.  Actions run
// immediately, one at a time, in call order.  If any action fails, every
// action that already succeeded is compensated in reverse order and the
// original failure is returned to the caller.  For more on sagas, see this
// 2017 JOTB talk by Caitie McCaffrey: https://www.youtube.com/watch?v=0UTOLRTwOX0
//
// Overview
//
// 1. Open a scope with Saga.Run (context-aware actions) or SyncSaga.Run
//    (plain blocking actions).
// 2. Inside the scope, execute each step with Step, supplying the action,
//    its compensation, and any bound arguments.  The action's result is
//    returned so later steps can build on it.
// 3. If the scope body returns an error, the engine compensates every
//    recorded step last-in-first-out and then hands the same error back.
//    A failing compensation never interrupts the rollback of earlier steps;
//    it is captured and exposed via CompensationErrors and the event trace.
//
// For sagas whose steps are known up front, Plan provides a declarative
// alternative: add the steps, then call Execute.  Reusable action pairs can
// be registered by name in an ActionRegistry and referenced from a Plan.
//
// A saga instance is reusable across sequential scopes but is not safe for
// concurrent use; see the single-writer note on Saga.
