package statemachine

import "fmt"

// Base implements the outcome bookkeeping shared by all states: it records
// the first outcome, counts tracked operations in flight, and posts the
// completion once both the outcome is known and the count has drained.
//
// Base is not safe for concurrent use; every method, and every tracked
// callback, must run on the executor given to Init.
type Base struct {
	kind     StateKind
	poster   Poster
	behavior Behavior

	entered   bool
	delivered bool
	pending   int
	outcome   Outcome
	onDone    func(Outcome)
}

// Init binds the state to its kind, executor and behavior. Call it from the
// state's factory before returning.
func (b *Base) Init(kind StateKind, poster Poster, behavior Behavior) {
	b.kind = kind
	b.poster = poster
	b.behavior = behavior
}

func (b *Base) Kind() StateKind { return b.kind }

func (b *Base) Enter(onDone func(Outcome)) {
	if b.entered {
		panic(fmt.Errorf("%w: %s", ErrAlreadyEntered, b.kind))
	}

	b.entered = true
	b.onDone = onDone

	b.behavior.OnEnter()
	b.deliver()
}

// Complete records o if no outcome is recorded yet and then releases the
// state's resources. It reports whether o was the one recorded.
func (b *Base) Complete(o Outcome) bool {
	if b.outcome != nil {
		return false
	}

	b.outcome = o
	b.behavior.Release()
	b.deliver()

	return true
}

func (b *Base) Cancel() {
	b.Complete(ShutdownAck{})
}

// Done reports whether an outcome has been recorded. Callbacks use it to
// avoid issuing new work after the state has finished.
func (b *Base) Done() bool {
	return b.outcome != nil
}

// Outcome returns the recorded outcome, or nil.
func (b *Base) Outcome() Outcome { //nolint:ireturn
	return b.outcome
}

// Pending returns the number of tracked operations not yet completed.
func (b *Base) Pending() int {
	return b.pending
}

// TrackErr wraps an error-only completion handler. See Track.
func (b *Base) TrackErr(fn func(error)) func(error) {
	b.issue()

	called := false

	return func(err error) {
		if called {
			panic(fmt.Errorf("%w: %s", ErrTrackedTwice, b.kind))
		}

		called = true

		defer b.settle()

		fn(err)
	}
}

// Track wraps the completion handler of an asynchronous operation so the
// state does not deliver its outcome while the operation is in flight. The
// returned function must be invoked exactly once, on the executor.
func Track[T any](b *Base, fn func(T, error)) func(T, error) {
	b.issue()

	called := false

	return func(val T, err error) {
		if called {
			panic(fmt.Errorf("%w: %s", ErrTrackedTwice, b.kind))
		}

		called = true

		defer b.settle()

		fn(val, err)
	}
}

func (b *Base) issue() {
	b.pending++
}

func (b *Base) settle() {
	b.pending--
	b.deliver()
}

func (b *Base) deliver() {
	if b.delivered || !b.entered || b.outcome == nil || b.pending > 0 {
		return
	}

	b.delivered = true

	onDone, o := b.onDone, b.outcome
	b.onDone = nil

	if onDone != nil {
		b.poster.Post(func() { onDone(o) })
	}
}
