package client

import (
	"context"
	"net/netip"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/statemachine"
)

type resolving struct {
	statemachine.Base

	sess   *Session
	cancel context.CancelFunc
}

func newResolving(_ statemachine.Outcome, s *Session) (statemachine.State, error) {
	st := &resolving{sess: s}
	st.Init(StateResolving, s.Loop, st)

	return st, nil
}

func (r *resolving) OnEnter() {
	ctx, cancel := r.sess.workContext()
	r.cancel = cancel

	host, service := r.sess.Host, r.sess.Service

	eventloop.Go(r.sess.Loop, ctx, func(ctx context.Context) (netip.AddrPort, error) {
		return r.sess.Resolver.Resolve(ctx, host, service)
	}, statemachine.Track(&r.Base, r.resolved))
}

func (r *resolving) resolved(ep netip.AddrPort, err error) {
	if err != nil {
		r.Complete(statemachine.Failure{
			Err: logger.AnnotateError(err, "host", r.sess.Host, "service", r.sess.Service),
		})

		return
	}

	r.Complete(Resolved{Endpoint: ep})
}

func (r *resolving) Release() {
	if r.cancel != nil {
		r.cancel()
	}
}
