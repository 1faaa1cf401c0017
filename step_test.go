package unwind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedTestAction() (int, error) { return 0, nil }

func TestFunctionNameDerivation(t *testing.T) {
	assert.Contains(t, functionName(namedTestAction), "namedTestAction")
	assert.Equal(t, anonymousName, functionName(nil))
	assert.Equal(t, anonymousName, functionName("not a function"))
}

func TestStepConfigDefaultsAreFreshPerStep(t *testing.T) {
	a := newStepConfig(nil)
	b := newStepConfig(nil)

	a.actionKwargs["k"] = "v"
	assert.Empty(t, b.actionKwargs, "configs must not share default bundles")

	assert.NotNil(t, a.actionArgs)
	assert.NotNil(t, a.compensationArgs)
	assert.NotNil(t, a.compensationKwargs)
}

func TestEventTypeStrings(t *testing.T) {
	assert.Equal(t, "step_started", EventStepStarted.String())
	assert.Equal(t, "step_succeeded", EventStepSucceeded.String())
	assert.Equal(t, "step_failed", EventStepFailed.String())
	assert.Equal(t, "compensation_started", EventCompensationStarted.String())
	assert.Equal(t, "compensation_succeeded", EventCompensationSucceeded.String())
	assert.Equal(t, "compensation_failed", EventCompensationFailed.String())
}
