package client

import (
	"time"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/statemachine"
)

type backingOff struct {
	statemachine.Base

	sess  *Session
	delay time.Duration
	timer *eventloop.Timer
}

func newBackingOff(_ statemachine.Outcome, s *Session) (statemachine.State, error) {
	st := &backingOff{
		sess:  s,
		delay: s.Backoff.Delay(s.Attempt),
		timer: s.Loop.NewTimer(),
	}

	s.Attempt++

	st.Init(StateBackoff, s.Loop, st)

	return st, nil
}

func (b *backingOff) OnEnter() {
	logger.Get(b.sess.Context()).Info("Backing off before reconnecting",
		"attempt", b.sess.Attempt,
		"delay", b.delay.String())

	b.timer.Wait(b.delay, b.TrackErr(b.expired))
}

func (b *backingOff) expired(err error) {
	if err != nil {
		b.Complete(statemachine.Failure{Err: err})

		return
	}

	b.Complete(Retry{})
}

func (b *backingOff) Release() {
	b.timer.Cancel()
}
