package statemachine

import (
	"fmt"
	"log/slog"
	"slices"
)

// Factory builds the state to enter after prev. It may update c, which is
// the run's shared context. An error ends the run with that error.
type Factory[C any] func(prev Outcome, c C) (State, error)

// StateSpec declares a state, the outcome kinds it may complete with, and
// how to build it.
type StateSpec[C any] struct {
	Kind     StateKind
	Outcomes []OutcomeKind
	Build    Factory[C]
}

// Definition is everything needed to build a Machine.
type Definition[C any] struct {
	Name        string
	Start       StateKind
	Terminal    StateKind
	States      []StateSpec[C]
	Transitions []Transition
	// Result turns the outcome that reached the terminal into the run's
	// result. Nil means DefaultResult.
	Result func(last Outcome, c C) error
}

// DefaultResult reports the error carried by Failure and ShutdownAck and
// nil for every other outcome.
func DefaultResult[C any](last Outcome, _ C) error {
	return outcomeErr(last)
}

// Machine is a validated, immutable definition. One Machine can back any
// number of engines.
type Machine[C any] struct {
	def      Definition[C]
	graph    Graph
	table    *Table
	specs    map[StateKind]StateSpec[C]
	warnings Issues
}

// NewMachine runs the definition's self-test and indexes it. Warnings are
// logged and kept on the machine; errors make NewMachine fail.
func NewMachine[C any](def Definition[C]) (*Machine[C], error) {
	graph := Graph{
		Name:        def.Name,
		Start:       def.Start,
		Terminal:    def.Terminal,
		States:      make([]StateDecl, 0, len(def.States)),
		Transitions: append([]Transition(nil), def.Transitions...),
	}

	specs := make(map[StateKind]StateSpec[C], len(def.States))

	for _, spec := range def.States {
		graph.States = append(graph.States, StateDecl{
			Kind:       spec.Kind,
			Outcomes:   append([]OutcomeKind(nil), spec.Outcomes...),
			HasFactory: spec.Build != nil,
		})
		specs[spec.Kind] = spec
	}

	issues := graph.Check()
	if err := issues.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	table, err := NewTable(def.Transitions...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.Name, err)
	}

	warnings := issues.Warnings()
	for _, w := range warnings {
		slog.Warn("state machine definition warning", "machine", def.Name, "rule", w.Rule, "message", w.Message)
	}

	if def.Result == nil {
		def.Result = DefaultResult[C]
	}

	return &Machine[C]{
		def:      def,
		graph:    graph,
		table:    table,
		specs:    specs,
		warnings: warnings,
	}, nil
}

// MustMachine is NewMachine for package-level definitions; it panics on error.
func MustMachine[C any](def Definition[C]) *Machine[C] {
	m, err := NewMachine(def)
	if err != nil {
		panic(err)
	}

	return m
}

func (m *Machine[C]) Name() string { return m.def.Name }

// Graph returns the machine's static shape.
func (m *Machine[C]) Graph() Graph { return m.graph }

// Table returns the transition table.
func (m *Machine[C]) Table() *Table { return m.table }

// Warnings returns the non-fatal findings of the self-test.
func (m *Machine[C]) Warnings() Issues { return m.warnings }

func (m *Machine[C]) declares(state StateKind, o OutcomeKind) bool {
	spec, ok := m.specs[state]
	if !ok {
		return false
	}

	return slices.Contains(spec.Outcomes, o)
}

func (m *Machine[C]) build(kind StateKind, prev Outcome, c C) (State, error) { //nolint:ireturn
	st, err := m.specs[kind].Build(prev, c)
	if err != nil {
		return nil, err
	}

	if st == nil || st.Kind() != kind {
		panic(&StateError{State: kind, Err: ErrKindMismatch})
	}

	return st, nil
}
