// Package client implements a TCP client that stays connected: it resolves
// the target, connects, reads newline-delimited messages while watching for
// idle connections, and on any failure waits with exponential backoff before
// starting over. Only cancellation ends a run.
package client

import (
	"context"
	"net"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/statemachine"
)

// Client owns one reconnect engine. Start, Cancel and Run are safe from any
// goroutine.
type Client struct {
	cfg    Config
	loop   *eventloop.Loop
	engine *statemachine.Engine[*Session]

	resolver Resolver
	dialer   Dialer
	onLine   LineHandler
}

type options struct {
	resolver Resolver
	dialer   Dialer
	logger   statemachine.Logger
	onLine   LineHandler
}

// Option configures a Client.
type Option func(*options)

// WithResolver replaces the caching DNS resolver.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithDialer replaces the default *net.Dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithLogger sets the engine's lifecycle logger.
func WithLogger(l statemachine.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithLineHandler registers a callback for every received line.
func WithLineHandler(h LineHandler) Option {
	return func(o *options) { o.onLine = h }
}

// New creates a client whose states run on loop. Timers follow the loop's
// clock.
func New(loop *eventloop.Loop, cfg Config, opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.resolver == nil {
		o.resolver = NewDNSResolver()
	}

	if o.dialer == nil {
		o.dialer = &net.Dialer{}
	}

	var engineOpts []statemachine.EngineOption
	if o.logger != nil {
		engineOpts = append(engineOpts, statemachine.WithLogger(o.logger))
	}

	return &Client{
		cfg:      cfg,
		loop:     loop,
		engine:   statemachine.NewEngine(machine, loop, engineOpts...),
		resolver: o.resolver,
		dialer:   o.dialer,
		onLine:   o.onLine,
	}
}

// Start begins a run; done is called on the loop with the run's result once
// the run is canceled. Start returns statemachine.ErrAlreadyActive if a run
// is in progress.
func (c *Client) Start(ctx context.Context, done func(error)) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx = logger.WithSubsystem(ctx, "client")

	return c.engine.Start(ctx, c.newSession(ctx), done)
}

// Cancel ends the active run, if any.
func (c *Client) Cancel() {
	c.engine.Cancel()
}

// Run starts a run and waits for it to end. Canceling ctx cancels the run.
// If the loop stops first, Run returns statemachine.ErrLoopStopped.
func (c *Client) Run(ctx context.Context) error {
	result := make(chan error, 1)

	if err := c.Start(ctx, func(err error) { result <- err }); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-c.loop.Done():
		select {
		case err := <-result:
			return err
		default:
			return statemachine.ErrLoopStopped
		}
	}
}

// Active reports whether a run is in progress.
func (c *Client) Active() bool {
	return c.engine.Active()
}

// State returns the active state, or "" between runs.
func (c *Client) State() statemachine.StateKind {
	return c.engine.Current()
}

// Graph returns the transition graph the client runs.
func (c *Client) Graph() statemachine.Graph {
	return c.engine.Machine().Graph()
}

func (c *Client) newSession(ctx context.Context) *Session {
	return &Session{
		Loop:          c.loop,
		Host:          c.cfg.Host,
		Service:       c.cfg.Service,
		IdleTimeout:   c.cfg.IdleTimeout,
		MaxLineLength: c.cfg.MaxLineLength,
		Backoff:       c.cfg.Backoff,
		Resolver:      c.resolver,
		Dialer:        c.dialer,
		OnLine:        c.onLine,
		ctx:           ctx,
	}
}
