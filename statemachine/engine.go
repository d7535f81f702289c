package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Engine drives runs of a Machine on an executor. At most one run is active
// at a time. Start, Cancel, Active and Current are safe from any goroutine;
// everything else happens on the executor.
type Engine[C any] struct {
	machine *Machine[C]
	poster  Poster
	logger  Logger

	active  atomic.Bool
	current atomic.String

	// Owned by the executor.
	sess *session[C]
}

// session is the per-run state. Two slots let the next state be built and
// entered before the previous one is released.
type session[C any] struct {
	ctx     context.Context //nolint:containedctx
	id      string
	c       C
	done    func(error)
	started time.Time

	slots     [2]State
	active    int
	enteredAt time.Time
	stateSpan trace.Span
	runSpan   trace.Span

	cancelRequested bool
	stopWatch       func() bool
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger Logger
}

// WithLogger replaces the DefaultLogger.
func WithLogger(l Logger) EngineOption {
	return func(o *engineOptions) { o.logger = l }
}

// NewEngine binds a machine to an executor.
func NewEngine[C any](m *Machine[C], poster Poster, opts ...EngineOption) *Engine[C] {
	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = NewDefaultLogger()
	}

	return &Engine[C]{machine: m, poster: poster, logger: o.logger}
}

// Machine returns the definition the engine runs.
func (e *Engine[C]) Machine() *Machine[C] { return e.machine }

// Active reports whether a run is in progress.
func (e *Engine[C]) Active() bool { return e.active.Load() }

// Current returns the kind of the active state, or "" between runs.
func (e *Engine[C]) Current() StateKind { return StateKind(e.current.Load()) }

// Start begins a run with context c. done is posted exactly once with the
// run's result. Canceling ctx has the same effect as Cancel. Start returns
// ErrAlreadyActive if a run is in progress and ErrLoopStopped if the executor
// refuses the work; done is not called in either case.
func (e *Engine[C]) Start(ctx context.Context, c C, done func(error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !e.active.CompareAndSwap(false, true) {
		return ErrAlreadyActive
	}

	id := uuid.NewString()

	if !e.poster.Post(func() { e.begin(ctx, id, c, done) }) {
		e.active.Store(false)

		return ErrLoopStopped
	}

	return nil
}

// Cancel asks the active state to stop. The run then ends through the
// ShutdownAck transitions. Cancel with no active run does nothing.
func (e *Engine[C]) Cancel() {
	e.poster.Post(e.cancel)
}

func (e *Engine[C]) begin(ctx context.Context, id string, c C, done func(error)) {
	ctx = logger.WithRunID(ctx, id)
	ctx, runSpan := startRunSpan(ctx, e.machine.Name(), id)

	s := &session[C]{
		ctx:     ctx,
		id:      id,
		c:       c,
		done:    done,
		started: time.Now(),
		runSpan: runSpan,
	}

	e.sess = s

	runsStarted.WithLabelValues(sanitizeMachine(e.machine.Name())).Inc()
	e.logger.RunStarted(ctx, e.machine.Name(), e.machine.def.Start)

	// Cancellation of the caller's context is forwarded as a Cancel.
	s.stopWatch = context.AfterFunc(ctx, e.Cancel)

	e.advance(s, e.machine.def.Start, Start{})
}

func (e *Engine[C]) cancel() {
	s := e.sess
	if s == nil {
		return
	}

	s.cancelRequested = true

	if st := s.slots[s.active]; st != nil {
		st.Cancel()
	}
}

// advance builds next into the free slot, enters it, and only then drops
// the previous state.
func (e *Engine[C]) advance(s *session[C], next StateKind, prev Outcome) {
	st, err := e.machine.build(next, prev, s.c)
	if err != nil {
		e.finish(s, WrapStateError(next, fmt.Errorf("build: %w", err)))

		return
	}

	old := s.active
	s.active = 1 - old
	s.slots[s.active] = st

	name := sanitizeMachine(e.machine.Name())

	e.current.Store(string(next))
	activeState.WithLabelValues(name, string(next)).Inc()

	s.enteredAt = time.Now()
	s.stateSpan = startStateSpan(s.ctx, next, prev)

	st.Enter(e.completion(s, st))

	s.slots[old] = nil

	e.logger.StateEntered(s.ctx, next)

	// A cancel that arrived while the previous state was already finishing
	// applies to this one.
	if s.cancelRequested {
		st.Cancel()
	}
}

func (e *Engine[C]) completion(s *session[C], st State) func(Outcome) {
	return func(o Outcome) {
		e.dispatch(s, st, o)
	}
}

func (e *Engine[C]) dispatch(s *session[C], st State, o Outcome) {
	name := sanitizeMachine(e.machine.Name())

	if e.sess != s || s.slots[s.active] != st {
		staleOutcomes.WithLabelValues(name, string(st.Kind())).Inc()
		e.logger.StaleOutcome(s.ctx, st.Kind(), o)

		return
	}

	from := st.Kind()

	if !e.machine.declares(from, o.Kind()) {
		panic(&TransitionError{From: from, Outcome: o.Kind(), Err: ErrUndeclaredOutcome})
	}

	next := e.machine.table.Next(from, o.Kind())
	elapsed := time.Since(s.enteredAt)

	activeState.WithLabelValues(name, string(from)).Dec()
	stateDuration.WithLabelValues(name, string(from), string(o.Kind())).Observe(elapsed.Seconds())
	transitionTotal.WithLabelValues(name, string(from), string(o.Kind()), string(next)).Inc()
	endStateSpan(s.stateSpan, o, next)
	s.stateSpan = nil

	e.logger.TransitionExecuted(s.ctx, from, o, next, elapsed)

	if next == e.machine.def.Terminal {
		s.slots[s.active] = nil
		e.finish(s, e.machine.def.Result(o, s.c))

		return
	}

	e.advance(s, next, o)
}

// finish ends the session and posts its completion.
func (e *Engine[C]) finish(s *session[C], err error) {
	if e.sess != s {
		return
	}

	e.sess = nil

	if s.stopWatch != nil {
		s.stopWatch()
	}

	if s.stateSpan != nil {
		s.stateSpan.End()
	}

	name := sanitizeMachine(e.machine.Name())
	duration := time.Since(s.started)

	runsCompleted.WithLabelValues(name, resultLabel(err)).Inc()
	runDuration.WithLabelValues(name, resultLabel(err)).Observe(duration.Seconds())
	endRunSpan(s.runSpan, err)

	e.logger.RunCompleted(s.ctx, duration, err)

	e.current.Store("")
	e.active.Store(false)

	if s.done != nil {
		done := s.done
		e.poster.Post(func() { done(err) })
	}
}
