package client

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/amp-reconnect/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFailuresBackOffThenConnect(t *testing.T) {
	t.Parallel()

	dialer := newPipeDialer()
	h := newHarness(t, &scriptedResolver{failFirst: 2}, dialer)

	h.rec.Await(t, wait, "enter Backoff")
	h.advanceBackoff(t, time.Second)

	h.rec.Await(t, wait, "enter Backoff")
	h.advanceBackoff(t, 2*time.Second)

	h.rec.Await(t, wait, "enter Online")
	server := dialer.accept(t)

	assert.Equal(t, []statemachine.StateKind{
		StateResolving, StateBackoff,
		StateResolving, StateBackoff,
		StateResolving, StateConnecting, StateOnline,
	}, h.rec.Entered())
	assert.Equal(t, StateOnline, h.client.State())

	// Reaching Online reset the attempt counter, so the next backoff is
	// back to one second.
	require.NoError(t, server.Close())
	h.rec.Await(t, wait, "enter Backoff")
	h.advanceBackoff(t, time.Second)

	h.rec.Await(t, wait, "enter Online")
	h.client.Cancel()
	h.rec.Await(t, wait, "done")

	require.NoError(t, h.result(t))
	assert.False(t, h.client.Active())
}

func TestReadErrorRestartsProtocol(t *testing.T) {
	t.Parallel()

	dialer := newPipeDialer()
	h := newHarness(t, &scriptedResolver{}, dialer)

	server := dialer.accept(t)
	h.rec.Await(t, wait, "enter Online")

	go func() {
		_, _ = server.Write([]byte("one\ntwo\r\n"))
		_ = server.Close()
	}()

	assert.Equal(t, "one", h.nextLine(t))
	assert.Equal(t, "two", h.nextLine(t))

	h.rec.Await(t, wait, "Online --Failure--> Backoff")
	h.rec.Await(t, wait, "enter Backoff")
	h.advanceBackoff(t, time.Second)

	h.rec.Await(t, wait, "enter Online")
	dialer.accept(t)

	assert.Equal(t, []statemachine.StateKind{
		StateResolving, StateConnecting, StateOnline,
		StateBackoff,
		StateResolving, StateConnecting, StateOnline,
	}, h.rec.Entered())

	h.client.Cancel()
	h.rec.Await(t, wait, "done")
	require.NoError(t, h.result(t))
}

func TestCancelWhileConnecting(t *testing.T) {
	t.Parallel()

	dialer := newBlockingDialer()
	h := newHarness(t, &scriptedResolver{}, dialer)

	h.rec.Await(t, wait, "enter Connecting")

	select {
	case <-dialer.dialing:
	case <-time.After(wait):
		require.FailNow(t, "dial never started")
	}

	h.client.Cancel()
	h.client.Cancel()

	h.rec.Await(t, wait, "done")
	require.NoError(t, h.result(t))

	select {
	case <-dialer.canceled:
	default:
		assert.Fail(t, "dial was not canceled")
	}

	h.barrier(t)
	assert.Empty(t, h.results, "completion delivered more than once")
	assert.Equal(t, []statemachine.StateKind{StateResolving, StateConnecting}, h.rec.Entered())
	assert.Equal(t, []string{
		"Resolving --Resolved--> Connecting",
		"Connecting --ShutdownAck--> Terminal",
	}, h.rec.Transitions())
}

func TestIdleTimerRearmsOnRead(t *testing.T) {
	t.Parallel()

	dialer := newPipeDialer()
	h := newHarness(t, &scriptedResolver{}, dialer)

	server := dialer.accept(t)
	h.rec.Await(t, wait, "enter Online")

	h.clock.Advance(5 * time.Second)

	go func() { _, _ = server.Write([]byte("ping\n")) }()

	assert.Equal(t, "ping", h.nextLine(t))

	next, ok := h.clock.NextIn()
	require.True(t, ok)
	assert.Equal(t, DefaultIdleTimeout, next)

	h.clock.Advance(9 * time.Second)
	h.barrier(t)
	assert.Equal(t, StateOnline, h.client.State())

	h.clock.Advance(time.Second)
	h.rec.Await(t, wait, "Online --Failure--> Backoff")
	h.rec.Await(t, wait, "enter Backoff")

	h.client.Cancel()
	h.rec.Await(t, wait, "done")
	require.NoError(t, h.result(t))
}

func TestLongLineFailsOnline(t *testing.T) {
	t.Parallel()

	dialer := newPipeDialer()
	h := newHarness(t, &scriptedResolver{}, dialer, func(c *Config) { c.MaxLineLength = 8 })

	server := dialer.accept(t)
	h.rec.Await(t, wait, "enter Online")

	go func() { _, _ = server.Write([]byte("short\nthis line is far too long\n")) }()

	assert.Equal(t, "short", h.nextLine(t))
	h.rec.Await(t, wait, "Online --Failure--> Backoff")

	h.client.Cancel()
	h.rec.Await(t, wait, "done")
	require.NoError(t, h.result(t))
}

func TestStartWhileActive(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedResolver{}, newBlockingDialer())
	h.rec.Await(t, wait, "enter Connecting")

	err := h.client.Start(context.Background(), func(error) {
		t.Error("rejected run must not complete")
	})
	require.ErrorIs(t, err, statemachine.ErrAlreadyActive)
	assert.Equal(t, StateConnecting, h.client.State())

	h.client.Cancel()
	h.rec.Await(t, wait, "done")
	require.NoError(t, h.result(t))
}

func TestRunReturnsWhenContextCanceled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, &scriptedResolver{}, newBlockingDialer())
	h.rec.Await(t, wait, "enter Connecting")
	h.client.Cancel()
	h.rec.Await(t, wait, "done")
	require.NoError(t, h.result(t))

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)

	go func() { errs <- h.client.Run(ctx) }()

	h.rec.Await(t, wait, "enter Connecting")
	cancel()

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(wait):
		require.FailNow(t, "Run did not return")
	}
}
