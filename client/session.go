package client

import (
	"context"
	"net/netip"
	"time"

	"github.com/amp-labs/amp-reconnect/backoff"
	"github.com/amp-labs/amp-reconnect/eventloop"
)

// LineHandler receives each line read while Online, without the trailing
// newline. It runs on the loop and must not block.
type LineHandler func(line []byte)

// Session is the context shared by every state of one run. It is owned by
// the loop; only the active state and the factories touch it.
type Session struct {
	Loop    *eventloop.Loop
	Host    string
	Service string

	// Attempt counts consecutive backoffs since the last time Online was
	// entered.
	Attempt uint

	IdleTimeout   time.Duration
	MaxLineLength int
	Backoff       backoff.Schedule

	Resolver Resolver
	Dialer   Dialer
	OnLine   LineHandler

	// Endpoint is the address last produced by Resolving.
	Endpoint netip.AddrPort
	// Lines counts lines received since Online was last entered.
	Lines int

	ctx context.Context //nolint:containedctx
}

// Context returns the run's context, for logging.
func (s *Session) Context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}

	return s.ctx
}

// workContext is the parent of every operation a state issues. Only the
// owning state cancels those operations, so the caller's cancellation is
// stripped here; it reaches the states through the engine instead.
func (s *Session) workContext() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(s.Context()))
}
