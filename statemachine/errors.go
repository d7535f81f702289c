package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActive is returned by Engine.Start while a run is in progress.
	ErrAlreadyActive = errors.New("state machine run already active")
	// ErrAlreadyEntered is raised when a state is entered twice.
	ErrAlreadyEntered = errors.New("state already entered")
	// ErrTrackedTwice is raised when a tracked completion handler runs twice.
	ErrTrackedTwice = errors.New("tracked completion invoked twice")
	// ErrNoTransition is raised when an outcome has no row in the transition table.
	ErrNoTransition = errors.New("no transition for outcome")
	// ErrUndeclaredOutcome is raised when a state completes with an outcome it did not declare.
	ErrUndeclaredOutcome = errors.New("outcome not declared by state")
	// ErrKindMismatch is raised when a factory builds a state of the wrong kind.
	ErrKindMismatch = errors.New("factory built state of unexpected kind")
	// ErrInvalidGraph is returned by NewMachine when the definition fails its self-test.
	ErrInvalidGraph = errors.New("invalid state machine definition")
	// ErrNoFactory reports a state without a factory.
	ErrNoFactory = errors.New("state has no factory")
	// ErrLoopStopped is returned by Engine.Start when the executor rejects work.
	ErrLoopStopped = errors.New("executor stopped")
	// ErrUnexpectedOutcome is returned by factories handed an outcome they cannot build from.
	ErrUnexpectedOutcome = errors.New("unexpected outcome for factory")
)

// StateError wraps an error with the state it came from.
type StateError struct {
	State StateKind
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with the (state, outcome) pair that caused it.
type TransitionError struct {
	From    StateKind
	Outcome OutcomeKind
	To      StateKind
	Err     error
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("transition from %s on %s: %v", e.From, e.Outcome, e.Err)
	}

	return fmt.Sprintf("transition %s --%s--> %s: %v", e.From, e.Outcome, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps err with state context. It returns nil for a nil err.
func WrapStateError(state StateKind, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{State: state, Err: err}
}

// WrapTransitionError wraps err with transition context. It returns nil for a nil err.
func WrapTransitionError(from StateKind, outcome OutcomeKind, to StateKind, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{From: from, Outcome: outcome, To: to, Err: err}
}
