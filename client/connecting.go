package client

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/statemachine"
)

type connecting struct {
	statemachine.Base

	sess     *Session
	endpoint netip.AddrPort
	cancel   context.CancelFunc
}

func newConnecting(prev statemachine.Outcome, s *Session) (statemachine.State, error) {
	res, ok := prev.(Resolved)
	if !ok {
		return nil, fmt.Errorf("%w: %T", statemachine.ErrUnexpectedOutcome, prev)
	}

	s.Endpoint = res.Endpoint

	st := &connecting{sess: s, endpoint: res.Endpoint}
	st.Init(StateConnecting, s.Loop, st)

	return st, nil
}

func (c *connecting) OnEnter() {
	ctx, cancel := c.sess.workContext()
	c.cancel = cancel

	addr := c.endpoint.String()

	eventloop.Go(c.sess.Loop, ctx, func(ctx context.Context) (net.Conn, error) {
		return c.sess.Dialer.DialContext(ctx, "tcp", addr)
	}, statemachine.Track(&c.Base, c.connected))
}

func (c *connecting) connected(conn net.Conn, err error) {
	if err != nil {
		c.Complete(statemachine.Failure{
			Err: logger.AnnotateError(err, "endpoint", c.endpoint.String()),
		})

		return
	}

	// The dial can win a race with Cancel; nobody else will close it then.
	if !c.Complete(Connected{Conn: conn}) {
		_ = conn.Close()
	}
}

func (c *connecting) Release() {
	if c.cancel != nil {
		c.cancel()
	}
}
