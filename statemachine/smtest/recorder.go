package smtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-reconnect/statemachine"
	"github.com/stretchr/testify/require"
)

// Recorder is a statemachine.Logger that remembers what happened. It is safe
// to read from a test goroutine while the engine runs on another.
type Recorder struct {
	mu          sync.Mutex
	entered     []statemachine.StateKind
	transitions []string
	stale       []string
	results     []error

	events chan string
}

// NewRecorder returns a recorder whose Await can observe up to buffer events.
func NewRecorder(buffer int) *Recorder {
	return &Recorder{events: make(chan string, buffer)}
}

func (r *Recorder) emit(ev string) {
	if r.events == nil {
		return
	}

	select {
	case r.events <- ev:
	default:
	}
}

func (r *Recorder) RunStarted(context.Context, string, statemachine.StateKind) {
	r.emit("start")
}

func (r *Recorder) StateEntered(_ context.Context, state statemachine.StateKind) {
	r.mu.Lock()
	r.entered = append(r.entered, state)
	r.mu.Unlock()

	r.emit("enter " + string(state))
}

func (r *Recorder) TransitionExecuted(
	_ context.Context,
	from statemachine.StateKind,
	outcome statemachine.Outcome,
	to statemachine.StateKind,
	_ time.Duration,
) {
	row := statemachine.On(from, outcome.Kind(), to).String()

	r.mu.Lock()
	r.transitions = append(r.transitions, row)
	r.mu.Unlock()

	r.emit(row)
}

func (r *Recorder) StaleOutcome(_ context.Context, state statemachine.StateKind, outcome statemachine.Outcome) {
	r.mu.Lock()
	r.stale = append(r.stale, fmt.Sprintf("%s:%s", state, outcome.Kind()))
	r.mu.Unlock()
}

func (r *Recorder) RunCompleted(_ context.Context, _ time.Duration, err error) {
	r.mu.Lock()
	r.results = append(r.results, err)
	r.mu.Unlock()

	r.emit("done")
}

// Entered returns the states entered so far, in order.
func (r *Recorder) Entered() []statemachine.StateKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]statemachine.StateKind(nil), r.entered...)
}

// Transitions returns the executed rows formatted as "From --Outcome--> To".
func (r *Recorder) Transitions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.transitions...)
}

// Stale returns dropped outcomes formatted as "State:Outcome".
func (r *Recorder) Stale() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.stale...)
}

// Results returns the result of every completed run.
func (r *Recorder) Results() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]error(nil), r.results...)
}

// Await consumes events until want is seen, failing the test after timeout.
// Events are "start", "enter <State>", "<From> --<Outcome>--> <To>" and "done".
func (r *Recorder) Await(t *testing.T, timeout time.Duration, want string) {
	t.Helper()

	deadline := time.After(timeout)

	for {
		select {
		case ev := <-r.events:
			if ev == want {
				return
			}
		case <-deadline:
			require.FailNow(t, "event not observed", "waiting for %q; entered so far: %v", want, r.Entered())
		}
	}
}

var _ statemachine.Logger = (*Recorder)(nil)
