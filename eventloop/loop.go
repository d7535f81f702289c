// Package eventloop provides a single-threaded executor. Functions posted to a
// Loop run one at a time, in posting order, on the goroutine that called Run.
// Blocking work is pushed to a worker pool and its result is posted back, so
// state owned by the loop never needs a lock.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-reconnect/logger"
	"go.uber.org/atomic"
)

const defaultWorkers = 16

var (
	// ErrStopped is reported when work is handed to a loop that has stopped.
	ErrStopped = errors.New("event loop stopped")
	// ErrAlreadyRunning is returned by Run when another goroutine is running the loop.
	ErrAlreadyRunning = errors.New("event loop already running")
	// ErrPanic wraps a value recovered from a posted function.
	ErrPanic = errors.New("panic in event loop")
)

// Loop is a FIFO executor. Post and Stop are safe from any goroutine.
type Loop struct {
	name    string
	clock   Clock
	pool    pond.Pool
	recover bool

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	running  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}

	// ctx is canceled when Run returns; in-flight work observes it.
	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc
}

type options struct {
	name    string
	workers int
	clock   Clock
	recover bool
}

// Option configures a Loop.
type Option func(*options)

// WithName labels the loop in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithWorkers bounds the number of concurrent blocking operations.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithClock replaces the wall clock used by timers.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithRecover makes the loop log and survive panics in posted functions.
// By default a panic is logged and then re-raised.
func WithRecover(enabled bool) Option {
	return func(o *options) { o.recover = enabled }
}

// New creates a loop. It does nothing until Run is called.
func New(opts ...Option) *Loop {
	o := options{name: "default", workers: defaultWorkers, clock: SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	if o.workers <= 0 {
		o.workers = defaultWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Loop{
		name:    o.name,
		clock:   o.clock,
		pool:    pond.NewPool(o.workers),
		recover: o.recover,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Name returns the label given with WithName.
func (l *Loop) Name() string {
	return l.name
}

// Clock returns the clock timers on this loop are driven by.
func (l *Loop) Clock() Clock {
	return l.clock
}

// Post enqueues fn. It returns false, and fn never runs, once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil || l.stopped.Load() {
		return false
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	depth := len(l.queue)
	l.mu.Unlock()

	loopPosted.WithLabelValues(l.name).Inc()
	loopQueueDepth.WithLabelValues(l.name).Set(float64(depth))

	select {
	case l.wake <- struct{}{}:
	default:
	}

	return true
}

// Stop makes Run return after the function currently executing, if any.
// Functions still queued are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.stopped.Store(true)
		close(l.stopCh)
	})
}

// Stopped reports whether Stop was called or Run has returned.
func (l *Loop) Stopped() bool {
	return l.stopped.Load()
}

// Done is closed once the loop stops accepting work.
func (l *Loop) Done() <-chan struct{} {
	return l.stopCh
}

// Run executes posted functions until Stop is called or ctx is done. It
// returns nil after Stop and ctx.Err() after cancellation. A loop runs once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	log := logger.Get(logger.WithSubsystem(ctx, "eventloop")).With("loop", l.name)
	log.Debug("event loop started")

	defer func() {
		l.Stop()
		l.cancel()

		go l.pool.StopAndWait()

		log.Debug("event loop stopped")
	}()

	for {
		for _, fn := range l.drain() {
			if l.stopped.Load() {
				return nil
			}

			l.execute(ctx, fn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	loopQueueDepth.WithLabelValues(l.name).Set(0)

	return batch
}

func (l *Loop) execute(ctx context.Context, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			loopPanics.WithLabelValues(l.name).Inc()

			logger.Get(ctx).Error("event loop recovered from panic",
				"loop", l.name,
				"error", r,
				"stack", string(debug.Stack()))

			if !l.recover {
				panic(panicError(l.name, r))
			}
		}
	}()

	fn()
	loopExecuted.WithLabelValues(l.name).Inc()
}

func panicError(name string, r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w %s: %w", ErrPanic, name, err)
	}

	return fmt.Errorf("%w %s: %v", ErrPanic, name, r)
}
