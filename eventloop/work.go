package eventloop

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Go runs work on the loop's worker pool and posts done(result, err) back to
// the loop. work sees a context canceled by ctx or by the loop shutting down.
//
// If the loop is already stopped, done is never called. A result that cannot
// be delivered and implements io.Closer is closed.
func Go[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), done func(T, error)) {
	if ctx == nil {
		ctx = context.Background()
	}

	workCtx, cancel := context.WithCancel(ctx)
	unhook := context.AfterFunc(l.ctx, cancel)

	err := l.pool.Go(func() {
		defer cancel()
		defer unhook()

		start := time.Now()
		val, err := work(workCtx)

		workDuration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())

		if !l.Post(func() { done(val, err) }) {
			workDropped.WithLabelValues(l.name).Inc()

			if c, ok := any(val).(io.Closer); ok && err == nil {
				_ = c.Close()
			}
		}
	})
	if err != nil {
		unhook()
		cancel()

		var zero T

		l.Post(func() { done(zero, fmt.Errorf("%w: %w", ErrStopped, err)) })
	}
}
