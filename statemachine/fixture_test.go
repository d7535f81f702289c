package statemachine_test

import (
	"errors"

	"github.com/amp-labs/amp-reconnect/statemachine"
	"github.com/amp-labs/amp-reconnect/statemachine/smtest"
)

const (
	stateA   statemachine.StateKind = "A"
	stateB   statemachine.StateKind = "B"
	terminal statemachine.StateKind = "Done"

	kindPing statemachine.OutcomeKind = "Ping"
	kindPong statemachine.OutcomeKind = "Pong"
	kindOops statemachine.OutcomeKind = "Oops"
)

type ping struct{}

func (ping) Kind() statemachine.OutcomeKind { return kindPing }

type pong struct{ N int }

func (pong) Kind() statemachine.OutcomeKind { return kindPong }

type oops struct{}

func (oops) Kind() statemachine.OutcomeKind { return kindOops }

var errBoom = errors.New("boom")

// counter is the shared run context of the test machine.
type counter struct {
	built int
}

type fixture struct {
	poster   *smtest.ManualPoster
	registry *smtest.Registry
	recorder *smtest.Recorder
	machine  *statemachine.Machine[*counter]
	engine   *statemachine.Engine[*counter]
}

func pingPongDefinition(
	poster statemachine.Poster,
	registry *smtest.Registry,
) statemachine.Definition[*counter] {
	count := func(_ *smtest.Scripted, c *counter) { c.built++ }

	return statemachine.Definition[*counter]{
		Name:     "pingpong",
		Start:    stateA,
		Terminal: terminal,
		States: []statemachine.StateSpec[*counter]{
			{
				Kind:     stateA,
				Outcomes: []statemachine.OutcomeKind{kindPing, statemachine.KindFailure, statemachine.KindShutdownAck},
				Build:    smtest.Factory(registry, poster, stateA, count),
			},
			{
				Kind:     stateB,
				Outcomes: []statemachine.OutcomeKind{kindPong, statemachine.KindFailure, statemachine.KindShutdownAck},
				Build:    smtest.Factory(registry, poster, stateB, count),
			},
		},
		Transitions: []statemachine.Transition{
			statemachine.On(stateA, kindPing, stateB),
			statemachine.On(stateA, statemachine.KindFailure, terminal),
			statemachine.On(stateA, statemachine.KindShutdownAck, terminal),
			statemachine.On(stateB, kindPong, terminal),
			statemachine.On(stateB, statemachine.KindFailure, stateA),
			statemachine.On(stateB, statemachine.KindShutdownAck, terminal),
		},
	}
}

func newFixture(mutate func(*statemachine.Definition[*counter])) (*fixture, error) {
	f := &fixture{
		poster:   &smtest.ManualPoster{},
		registry: &smtest.Registry{},
		recorder: smtest.NewRecorder(64),
	}

	def := pingPongDefinition(f.poster, f.registry)
	if mutate != nil {
		mutate(&def)
	}

	m, err := statemachine.NewMachine(def)
	if err != nil {
		return nil, err
	}

	f.machine = m
	f.engine = statemachine.NewEngine(m, f.poster, statemachine.WithLogger(f.recorder))

	return f, nil
}

// results collects done callbacks.
type results struct {
	errs []error
}

func (r *results) done(err error) {
	r.errs = append(r.errs, err)
}
