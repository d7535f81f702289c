// Package ticktock is a minimal machine on the statemachine engine: two
// states that hand over to each other every Period until canceled.
package ticktock

import (
	"context"
	"time"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/statemachine"
)

const (
	StateTicked    statemachine.StateKind = "Ticked"
	StateTocked    statemachine.StateKind = "Tocked"
	StateCompleted statemachine.StateKind = "Completed"

	OutcomeTick statemachine.OutcomeKind = "Tick"
	OutcomeTock statemachine.OutcomeKind = "Tock"
)

// DefaultPeriod is how long each state lasts.
const DefaultPeriod = 3 * time.Second

type Tick struct{}

func (Tick) Kind() statemachine.OutcomeKind { return OutcomeTick }

type Tock struct{}

func (Tock) Kind() statemachine.OutcomeKind { return OutcomeTock }

// Session is the run context.
type Session struct {
	Loop   *eventloop.Loop
	Period time.Duration
	// Beats counts completed periods.
	Beats int

	ctx context.Context //nolint:containedctx
}

var machine = statemachine.MustMachine(statemachine.Definition[*Session]{
	Name:     "ticktock",
	Start:    StateTicked,
	Terminal: StateCompleted,
	States: []statemachine.StateSpec[*Session]{
		{
			Kind:     StateTicked,
			Outcomes: []statemachine.OutcomeKind{OutcomeTock, statemachine.KindShutdownAck},
			Build:    factory(StateTicked, Tock{}),
		},
		{
			Kind:     StateTocked,
			Outcomes: []statemachine.OutcomeKind{OutcomeTick, statemachine.KindShutdownAck},
			Build:    factory(StateTocked, Tick{}),
		},
	},
	Transitions: []statemachine.Transition{
		statemachine.On(StateTicked, OutcomeTock, StateTocked),
		statemachine.On(StateTicked, statemachine.KindShutdownAck, StateCompleted),
		statemachine.On(StateTocked, OutcomeTick, StateTicked),
		statemachine.On(StateTocked, statemachine.KindShutdownAck, StateCompleted),
	},
})

// Graph returns the tick/tock transition graph.
func Graph() statemachine.Graph {
	return machine.Graph()
}

// beat waits one period and then completes with next.
type beat struct {
	statemachine.Base

	sess  *Session
	next  statemachine.Outcome
	timer *eventloop.Timer
}

func factory(kind statemachine.StateKind, next statemachine.Outcome) statemachine.Factory[*Session] {
	return func(_ statemachine.Outcome, s *Session) (statemachine.State, error) {
		b := &beat{sess: s, next: next, timer: s.Loop.NewTimer()}
		b.Init(kind, s.Loop, b)

		return b, nil
	}
}

func (b *beat) OnEnter() {
	b.timer.Wait(b.sess.Period, b.TrackErr(b.expired))
}

func (b *beat) expired(err error) {
	if err != nil {
		b.Complete(statemachine.ShutdownAck{Err: err})

		return
	}

	b.sess.Beats++
	logger.Get(b.sess.ctx).Info(string(b.next.Kind()), "beats", b.sess.Beats)

	b.Complete(b.next)
}

func (b *beat) Release() {
	b.timer.Cancel()
}

// TickTock runs the machine on a loop.
type TickTock struct {
	loop   *eventloop.Loop
	period time.Duration
	engine *statemachine.Engine[*Session]
}

// New returns a TickTock with the given period; zero means DefaultPeriod.
func New(loop *eventloop.Loop, period time.Duration, opts ...statemachine.EngineOption) *TickTock {
	if period <= 0 {
		period = DefaultPeriod
	}

	return &TickTock{
		loop:   loop,
		period: period,
		engine: statemachine.NewEngine(machine, loop, opts...),
	}
}

// Start begins ticking. done receives nil after Cancel.
func (t *TickTock) Start(ctx context.Context, done func(error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx = logger.WithSubsystem(ctx, "ticktock")

	return t.engine.Start(ctx, &Session{Loop: t.loop, Period: t.period, ctx: ctx}, done)
}

func (t *TickTock) Cancel() {
	t.engine.Cancel()
}
