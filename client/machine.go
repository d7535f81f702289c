package client

import (
	"github.com/amp-labs/amp-reconnect/statemachine"
)

// Name is the machine's name in logs, metrics and traces.
const Name = "reconnect"

var machine = statemachine.MustMachine(definition())

func definition() statemachine.Definition[*Session] {
	failure := statemachine.KindFailure
	shutdown := statemachine.KindShutdownAck

	return statemachine.Definition[*Session]{
		Name:     Name,
		Start:    StateResolving,
		Terminal: StateTerminal,
		States: []statemachine.StateSpec[*Session]{
			{
				Kind:     StateResolving,
				Outcomes: []statemachine.OutcomeKind{failure, OutcomeResolved, shutdown},
				Build:    newResolving,
			},
			{
				Kind:     StateConnecting,
				Outcomes: []statemachine.OutcomeKind{failure, OutcomeConnected, shutdown},
				Build:    newConnecting,
			},
			{
				Kind:     StateOnline,
				Outcomes: []statemachine.OutcomeKind{failure, shutdown},
				Build:    newOnline,
			},
			{
				Kind:     StateBackoff,
				Outcomes: []statemachine.OutcomeKind{OutcomeRetry, failure, shutdown},
				Build:    newBackingOff,
			},
		},
		Transitions: []statemachine.Transition{
			statemachine.On(StateResolving, failure, StateBackoff),
			statemachine.On(StateResolving, OutcomeResolved, StateConnecting),
			statemachine.On(StateResolving, shutdown, StateTerminal),

			statemachine.On(StateConnecting, failure, StateBackoff),
			statemachine.On(StateConnecting, OutcomeConnected, StateOnline),
			statemachine.On(StateConnecting, shutdown, StateTerminal),

			statemachine.On(StateOnline, failure, StateBackoff),
			statemachine.On(StateOnline, shutdown, StateTerminal),

			statemachine.On(StateBackoff, OutcomeRetry, StateResolving),
			statemachine.On(StateBackoff, failure, StateTerminal),
			statemachine.On(StateBackoff, shutdown, StateTerminal),
		},
	}
}

// Graph returns the reconnect protocol's transition graph.
func Graph() statemachine.Graph {
	return machine.Graph()
}
