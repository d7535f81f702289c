// Package statemachine runs asynchronous state machines on a single-threaded
// executor. Each state starts work when entered and finishes by recording one
// outcome; a static transition table maps (state, outcome kind) to the next
// state. A run ends when the table leads to the terminal state.
package statemachine

import "fmt"

// StateKind names a state. It is the key used in transition tables.
type StateKind string

func (k StateKind) String() string { return string(k) }

// OutcomeKind names the variant of an outcome.
type OutcomeKind string

func (k OutcomeKind) String() string { return string(k) }

// Outcome is the result a state completes with. Payload-carrying outcomes
// are plain structs whose Kind method names their variant.
type Outcome interface {
	Kind() OutcomeKind
}

const (
	// KindStart is the synthetic outcome that leads into the start state.
	KindStart OutcomeKind = "Start"
	// KindFailure carries an error.
	KindFailure OutcomeKind = "Failure"
	// KindShutdownAck acknowledges a cancellation request.
	KindShutdownAck OutcomeKind = "ShutdownAck"
)

// Start is passed to the start state's factory.
type Start struct{}

func (Start) Kind() OutcomeKind { return KindStart }

// Failure reports that a state's work failed.
type Failure struct {
	Err error
}

func (Failure) Kind() OutcomeKind { return KindFailure }

func (f Failure) String() string { return fmt.Sprintf("Failure(%v)", f.Err) }

// ShutdownAck is recorded when a state is canceled before finishing.
type ShutdownAck struct {
	Err error
}

func (ShutdownAck) Kind() OutcomeKind { return KindShutdownAck }

// State is what the engine drives. Implementations usually embed Base and
// supply a Behavior.
type State interface {
	Kind() StateKind
	// Enter starts the state's work. onDone is posted exactly once, after an
	// outcome is recorded and no tracked operation is pending. Calling Enter
	// twice panics with ErrAlreadyEntered.
	Enter(onDone func(Outcome))
	// Cancel requests that all pending work stop. The state records
	// ShutdownAck unless it already has an outcome.
	Cancel()
}

// Behavior is the state-specific half of a Base-backed state.
type Behavior interface {
	// OnEnter issues the state's initial operations.
	OnEnter()
	// Release cancels whatever the state still has in flight. It is called
	// once, right after the outcome is recorded, and must be idempotent.
	Release()
}

// Poster schedules a function on the executor that owns the machine.
type Poster interface {
	Post(fn func()) bool
}

func outcomeErr(o Outcome) error {
	switch v := o.(type) {
	case Failure:
		return v.Err
	case *Failure:
		return v.Err
	case ShutdownAck:
		return v.Err
	case *ShutdownAck:
		return v.Err
	default:
		return nil
	}
}
