package statemachine_test

import (
	"testing"

	"github.com/amp-labs/amp-reconnect/statemachine"
	"github.com/amp-labs/amp-reconnect/statemachine/smtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMachineAcceptsCompleteDefinition(t *testing.T) {
	t.Parallel()

	f, err := newFixture(nil)
	require.NoError(t, err)

	assert.Empty(t, f.machine.Warnings())
	assert.Equal(t, "pingpong", f.machine.Name())

	g := f.machine.Graph()
	assert.Equal(t, stateA, g.Start)
	assert.Equal(t, terminal, g.Terminal)
	assert.Len(t, g.States, 2)
	assert.ElementsMatch(t, []statemachine.StateKind{stateB, terminal}, g.Successors(stateA))

	to, ok := f.machine.Table().Lookup(stateB, statemachine.KindFailure)
	require.True(t, ok)
	assert.Equal(t, stateA, to)
}

func TestNewMachineRejectsBrokenDefinitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(def *statemachine.Definition[*counter])
		rule   string
	}{
		{
			name: "missing transition",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.Transitions = def.Transitions[1:]
			},
			rule: "MissingTransition",
		},
		{
			name: "duplicate transition",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.Transitions = append(def.Transitions, statemachine.On(stateA, kindPing, terminal))
			},
			rule: "DuplicateTransition",
		},
		{
			name: "undeclared outcome",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.Transitions = append(def.Transitions, statemachine.On(stateA, kindOops, terminal))
			},
			rule: "UndeclaredOutcome",
		},
		{
			name: "unknown target",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.Transitions[0].To = "Nowhere"
			},
			rule: "UnknownState",
		},
		{
			name: "edge out of terminal",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.Transitions = append(def.Transitions, statemachine.On(terminal, kindPing, stateA))
			},
			rule: "TerminalEdge",
		},
		{
			name: "terminal declared as state",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.States = append(def.States, statemachine.StateSpec[*counter]{Kind: terminal})
			},
			rule: "Endpoints",
		},
		{
			name: "unknown start",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.Start = "Elsewhere"
			},
			rule: "Endpoints",
		},
		{
			name: "duplicate state",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.States = append(def.States, def.States[0])
			},
			rule: "DuplicateState",
		},
		{
			name: "missing factory",
			mutate: func(def *statemachine.Definition[*counter]) {
				def.States[1].Build = nil
			},
			rule: "MissingFactory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def := pingPongDefinition(&smtest.ManualPoster{}, &smtest.Registry{})
			tt.mutate(&def)

			_, err := statemachine.NewMachine(def)
			require.ErrorIs(t, err, statemachine.ErrInvalidGraph)
			assert.Contains(t, err.Error(), "["+tt.rule+"]")

			assert.Panics(t, func() { statemachine.MustMachine(def) })
		})
	}
}

func TestGraphCheckWarnings(t *testing.T) {
	t.Parallel()

	g := statemachine.Graph{
		Name:     "warnings",
		Start:    "S",
		Terminal: "T",
		States: []statemachine.StateDecl{
			{Kind: "S", Outcomes: []statemachine.OutcomeKind{"go"}, HasFactory: true},
			{Kind: "Loop", Outcomes: []statemachine.OutcomeKind{"again"}, HasFactory: true},
			{Kind: "Island", HasFactory: true},
		},
		Transitions: []statemachine.Transition{
			statemachine.On("S", "go", "Loop"),
			statemachine.On("Loop", "again", "Loop"),
		},
	}

	issues := g.Check()
	require.NoError(t, issues.Err())
	require.NoError(t, g.Validate())

	var rules []string
	for _, w := range issues.Warnings() {
		rules = append(rules, w.Rule+":"+string(w.State))
	}

	assert.ElementsMatch(t, []string{
		"UnreachableState:Island",
		"DeadEnd:S",
		"DeadEnd:Loop",
		"DeadEnd:Island",
	}, rules)
}

func TestTableNextPanicsOnMiss(t *testing.T) {
	t.Parallel()

	table, err := statemachine.NewTable(statemachine.On(stateA, kindPing, stateB))
	require.NoError(t, err)

	assert.Equal(t, stateB, table.Next(stateA, kindPing))
	assert.True(t, table.Match(stateA, kindPing))
	assert.False(t, table.Match(stateB, kindPing))
	assert.PanicsWithError(t, "transition from B on Ping: no transition for outcome", func() {
		table.Next(stateB, kindPing)
	})

	_, err = statemachine.NewTable(
		statemachine.On(stateA, kindPing, stateB),
		statemachine.On(stateA, kindPing, terminal),
	)
	require.ErrorIs(t, err, statemachine.ErrInvalidGraph)
}
