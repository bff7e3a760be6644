package wizard

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Phase is the coarse state of a wizard session.
type Phase string

// Phases outside the per-step states.
const (
	PhaseSubmitting Phase = "submitting"
	PhaseFailed     Phase = "failed"
	PhaseSucceeded  Phase = "succeeded"
)

// Events of the wizard state machine.
const (
	EventNext      = "NEXT"
	EventBack      = "BACK"
	EventSubmit    = "SUBMIT"
	EventSucceeded = "SUCCEEDED"
	EventFailed    = "FAILED"
	EventResume    = "RESUME"
	eventAck       = "ACK"
)

// machineContext is the statekit context. Entries counts state entries
// and is only used for diagnostics.
type machineContext struct {
	Entries int
}

func reservedState(id StepID) bool {
	switch Phase(id) {
	case PhaseSubmitting, PhaseFailed, PhaseSucceeded:
		return true
	}
	return false
}

// buildMachine creates one state per step plus submitting, failed and
// succeeded. Steps move with NEXT/BACK; the terminal step goes through
// submitting to succeeded, or to failed and straight back via RESUME.
// BACK on the first step is a self-transition; the controller refuses it
// before it reaches the machine.
func buildMachine(name string, defs []Definition, onEntry func(event string)) (*statekit.Interpreter[machineContext], error) {
	last := len(defs) - 1
	terminal := string(defs[last].ID)

	builder := statekit.NewMachine[machineContext](name).
		WithInitial(statekit.StateID(defs[0].ID)).
		WithContext(machineContext{}).
		WithAction("entered", func(c *machineContext, e statekit.Event) {
			c.Entries++
			if onEntry != nil {
				onEntry(string(e.Type))
			}
		})

	for i, def := range defs {
		prev := string(defs[max(i-1, 0)].ID)
		if i < last {
			next := string(defs[i+1].ID)
			builder = builder.State(statekit.StateID(def.ID)).
				OnEntry("entered").
				On(EventNext).Target(statekit.StateID(next)).
				On(EventBack).Target(statekit.StateID(prev)).
				Done()
			continue
		}
		builder = builder.State(statekit.StateID(def.ID)).
			OnEntry("entered").
			On(EventSubmit).Target(statekit.StateID(PhaseSubmitting)).
			On(EventBack).Target(statekit.StateID(prev)).
			Done()
	}

	builder = builder.
		State(statekit.StateID(PhaseSubmitting)).
		OnEntry("entered").
		On(EventSucceeded).Target(statekit.StateID(PhaseSucceeded)).
		On(EventFailed).Target(statekit.StateID(PhaseFailed)).
		Done().
		State(statekit.StateID(PhaseFailed)).
		OnEntry("entered").
		On(EventResume).Target(statekit.StateID(terminal)).
		Done().
		State(statekit.StateID(PhaseSucceeded)).
		OnEntry("entered").
		On(eventAck).Target(statekit.StateID(PhaseSucceeded)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}
	return statekit.NewInterpreter(machine), nil
}
