package eventloop

import (
	"errors"
	"time"
)

// ErrAborted is passed to a wait callback that was replaced or canceled
// before its deadline.
var ErrAborted = errors.New("timer wait aborted")

// Timer is a re-armable one-shot timer owned by a loop. Its methods must be
// called on the loop. Every wait's callback runs exactly once, on the loop:
// with nil at the deadline, or with ErrAborted if re-armed or canceled first.
type Timer struct {
	loop *Loop
	wait *timerWait
}

type timerWait struct {
	cb      func(error)
	stopper Stopper
	settled bool
}

// NewTimer returns an idle timer driven by the loop's clock.
func (l *Loop) NewTimer() *Timer {
	return &Timer{loop: l}
}

// Wait arms the timer for d. A wait already pending is aborted first, and
// Wait reports whether that happened.
func (t *Timer) Wait(d time.Duration, cb func(error)) bool {
	aborted := t.Cancel()

	w := &timerWait{cb: cb}
	t.wait = w
	w.stopper = t.loop.clock.AfterFunc(d, func() {
		t.loop.Post(func() { t.fire(w) })
	})

	return aborted
}

// Cancel aborts the pending wait, if any, and reports whether there was one.
func (t *Timer) Cancel() bool {
	w := t.wait
	if w == nil || w.settled {
		return false
	}

	t.wait = nil
	w.settled = true
	w.stopper.Stop()

	t.loop.Post(func() { w.cb(ErrAborted) })

	return true
}

// Pending reports whether a wait is armed.
func (t *Timer) Pending() bool {
	return t.wait != nil && !t.wait.settled
}

func (t *Timer) fire(w *timerWait) {
	if w.settled {
		return
	}

	w.settled = true

	if t.wait == w {
		t.wait = nil
	}

	w.cb(nil)
}
