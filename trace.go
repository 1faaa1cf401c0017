package unwind

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// EventType defines the kinds of diagnostic events a saga scope emits.
type EventType int

const (
	EventStepStarted EventType = iota
	EventStepSucceeded
	EventStepFailed
	EventCompensationStarted
	EventCompensationSucceeded
	EventCompensationFailed
)

// String returns the string representation of the EventType.
func (t EventType) String() string {
	switch t {
	case EventStepStarted:
		return "step_started"
	case EventStepSucceeded:
		return "step_succeeded"
	case EventStepFailed:
		return "step_failed"
	case EventCompensationStarted:
		return "compensation_started"
	case EventCompensationSucceeded:
		return "compensation_succeeded"
	case EventCompensationFailed:
		return "compensation_failed"
	default:
		return fmt.Sprintf("Unknown EventType: %d", t)
	}
}

// Event is one entry in a saga's diagnostic trace.
type Event struct {
	SagaID    uuid.UUID
	StepIndex int
	StepName  string
	Type      EventType
	Err       error
}

// String implements the fmt.Stringer interface for Event.
func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("S%03d %s %s: %v", e.StepIndex, e.StepName, e.Type, e.Err)
	}
	return fmt.Sprintf("S%03d %s %s", e.StepIndex, e.StepName, e.Type)
}

// Trace is the in-memory diagnostic channel for one saga instance.  Every
// step execution and every compensation attempt is recorded here, in order.
// The trace is cleared on scope entry, so it always describes the most
// recent scope.
type Trace struct {
	mu     sync.Mutex
	events []Event
}

// record appends an event to the trace.
func (t *Trace) record(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, event)
}

// reset clears the trace for a new scope.
func (t *Trace) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = t.events[:0]
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Event(nil), t.events...)
}

// TracePretty is a helper for pretty-printing a Trace.
type TracePretty struct {
	Trace *Trace
}

// String implements the fmt.Stringer interface for TracePretty.
func (p *TracePretty) String() string {
	events := p.Trace.Events()

	var sb strings.Builder
	sb.WriteString("SAGA TRACE:\n")
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(events)))
	for i, event := range events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", i+1, event.String()))
	}
	return sb.String()
}
