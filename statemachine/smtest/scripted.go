package smtest

import "github.com/amp-labs/amp-reconnect/statemachine"

// Scripted is a state driven entirely by the test. It starts no work of its
// own; the test issues tracked operations with Issue and finishes the state
// with Complete.
type Scripted struct {
	statemachine.Base

	Prev     statemachine.Outcome
	Entered  bool
	Released int

	// OnEnterFunc, when set, runs inside OnEnter.
	OnEnterFunc func(s *Scripted)
}

func (s *Scripted) OnEnter() {
	s.Entered = true

	if s.OnEnterFunc != nil {
		s.OnEnterFunc(s)
	}
}

func (s *Scripted) Release() {
	s.Released++
}

// Issue starts a tracked operation and returns the function that finishes it.
func (s *Scripted) Issue() func(error) {
	return s.TrackErr(func(error) {})
}

// Registry collects the scripted states a machine builds, so a test can
// reach the active one.
type Registry struct {
	Built []*Scripted
}

// Factory returns a factory that builds Scripted states of kind and records
// them in the registry. setup, when non-nil, runs on each new state.
func Factory[C any](
	r *Registry,
	poster statemachine.Poster,
	kind statemachine.StateKind,
	setup func(s *Scripted, c C),
) statemachine.Factory[C] {
	return func(prev statemachine.Outcome, c C) (statemachine.State, error) {
		s := &Scripted{Prev: prev}
		s.Init(kind, poster, s)

		if setup != nil {
			setup(s, c)
		}

		r.Built = append(r.Built, s)

		return s, nil
	}
}

// Last returns the most recently built state, or nil.
func (r *Registry) Last() *Scripted {
	if len(r.Built) == 0 {
		return nil
	}

	return r.Built[len(r.Built)-1]
}

// Count returns how many states of kind were built.
func (r *Registry) Count(kind statemachine.StateKind) int {
	n := 0

	for _, s := range r.Built {
		if s.Kind() == kind {
			n++
		}
	}

	return n
}
