package statemachine

import "fmt"

// Transition is one row of a transition table.
type Transition struct {
	From StateKind   `yaml:"from"`
	On   OutcomeKind `yaml:"on"`
	To   StateKind   `yaml:"to"`
}

// On builds a transition row.
func On(from StateKind, outcome OutcomeKind, to StateKind) Transition {
	return Transition{From: from, On: outcome, To: to}
}

func (t Transition) String() string {
	return fmt.Sprintf("%s --%s--> %s", t.From, t.On, t.To)
}

type transitionKey struct {
	from StateKind
	on   OutcomeKind
}

// Table maps (state, outcome kind) to the next state.
type Table struct {
	rows  []Transition
	index map[transitionKey]StateKind
}

// NewTable indexes rows. A repeated (from, outcome) pair is an error.
func NewTable(rows ...Transition) (*Table, error) {
	t := &Table{
		rows:  make([]Transition, 0, len(rows)),
		index: make(map[transitionKey]StateKind, len(rows)),
	}

	for _, row := range rows {
		key := transitionKey{row.From, row.On}
		if prev, dup := t.index[key]; dup {
			return nil, fmt.Errorf("%w: %s on %s leads to both %s and %s",
				ErrInvalidGraph, row.From, row.On, prev, row.To)
		}

		t.index[key] = row.To
		t.rows = append(t.rows, row)
	}

	return t, nil
}

// Lookup returns the target of (from, outcome).
func (t *Table) Lookup(from StateKind, outcome OutcomeKind) (StateKind, bool) {
	to, ok := t.index[transitionKey{from, outcome}]

	return to, ok
}

// Match reports whether the table has a row for (from, outcome).
func (t *Table) Match(from StateKind, outcome OutcomeKind) bool {
	_, ok := t.Lookup(from, outcome)

	return ok
}

// Next returns the target of (from, outcome) and panics when there is none.
// Machines built with NewMachine cover every declared pair, so a miss here
// means a state completed with an outcome it never declared.
func (t *Table) Next(from StateKind, outcome OutcomeKind) StateKind {
	to, ok := t.Lookup(from, outcome)
	if !ok {
		panic(&TransitionError{From: from, Outcome: outcome, Err: ErrNoTransition})
	}

	return to
}

// Rows returns a copy of the rows in declaration order.
func (t *Table) Rows() []Transition {
	out := make([]Transition, len(t.rows))
	copy(out, t.rows)

	return out
}
