package client

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/statemachine/smtest"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wait = 5 * time.Second

var testEndpoint = netip.MustParseAddrPort("192.0.2.10:7000")

// scriptedResolver fails the first failFirst calls.
type scriptedResolver struct {
	mu        sync.Mutex
	failFirst int
	calls     int
}

func (r *scriptedResolver) Resolve(context.Context, string, string) (netip.AddrPort, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.calls <= r.failFirst {
		return netip.AddrPort{}, ErrNoAddresses
	}

	return testEndpoint, nil
}

// pipeDialer connects to in-memory pipes and hands the far ends to the test.
type pipeDialer struct {
	servers chan net.Conn
}

func newPipeDialer() *pipeDialer {
	return &pipeDialer{servers: make(chan net.Conn, 8)}
}

func (d *pipeDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	client, server := net.Pipe()
	d.servers <- server

	return client, nil
}

func (d *pipeDialer) accept(t *testing.T) net.Conn {
	t.Helper()

	select {
	case conn := <-d.servers:
		t.Cleanup(func() { _ = conn.Close() })

		return conn
	case <-time.After(wait):
		require.FailNow(t, "no connection dialed")

		return nil
	}
}

// blockingDialer never connects; it waits for its context to be canceled.
type blockingDialer struct {
	dialing  chan struct{}
	canceled chan struct{}

	dialOnce, cancelOnce sync.Once
}

func newBlockingDialer() *blockingDialer {
	return &blockingDialer{dialing: make(chan struct{}), canceled: make(chan struct{})}
}

func (d *blockingDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	d.dialOnce.Do(func() { close(d.dialing) })
	<-ctx.Done()
	d.cancelOnce.Do(func() { close(d.canceled) })

	return nil, ctx.Err()
}

type harness struct {
	clock   *eventloop.ManualClock
	loop    *eventloop.Loop
	rec     *smtest.Recorder
	client  *Client
	results chan error
	lines   chan string
}

func newHarness(t *testing.T, resolver Resolver, dialer Dialer, configure ...func(*Config)) *harness {
	t.Helper()

	h := &harness{
		clock:   eventloop.NewManualClock(time.Unix(0, 0)),
		rec:     smtest.NewRecorder(256),
		results: make(chan error, 4),
		lines:   make(chan string, 16),
	}

	h.loop = eventloop.New(eventloop.WithName("client-test"), eventloop.WithClock(h.clock))

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), slogt.New(t)))
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		_ = h.loop.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	cfg := DefaultConfig()
	cfg.Host = "service.test"
	cfg.Service = "7000"

	for _, f := range configure {
		f(&cfg)
	}

	h.client = New(h.loop, cfg,
		WithResolver(resolver),
		WithDialer(dialer),
		WithLogger(h.rec),
		WithLineHandler(func(line []byte) { h.lines <- string(line) }))

	require.NoError(t, h.client.Start(ctx, func(err error) { h.results <- err }))

	return h
}

// advanceBackoff checks that the only pending timer is due in d and fires it.
func (h *harness) advanceBackoff(t *testing.T, d time.Duration) {
	t.Helper()

	next, ok := h.clock.NextIn()
	require.True(t, ok, "no timer armed")
	assert.Equal(t, d, next)

	h.clock.Advance(d)
}

func (h *harness) nextLine(t *testing.T) string {
	t.Helper()

	select {
	case line := <-h.lines:
		return line
	case <-time.After(wait):
		require.FailNow(t, "no line received")

		return ""
	}
}

func (h *harness) result(t *testing.T) error {
	t.Helper()

	select {
	case err := <-h.results:
		return err
	case <-time.After(wait):
		require.FailNow(t, "run did not complete")

		return nil
	}
}

// barrier waits until everything posted to the loop so far has run.
func (h *harness) barrier(t *testing.T) {
	t.Helper()

	done := make(chan struct{})
	require.True(t, h.loop.Post(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(wait):
		require.FailNow(t, "loop did not drain")
	}
}
