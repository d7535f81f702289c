package statemachine

import (
	"context"
	"log/slog"
	"time"

	"github.com/amp-labs/amp-reconnect/logger"
)

// Logger receives engine lifecycle events. Every call is made on the
// executor, with a context carrying the run id.
type Logger interface {
	RunStarted(ctx context.Context, machine string, start StateKind)
	StateEntered(ctx context.Context, state StateKind)
	TransitionExecuted(ctx context.Context, from StateKind, outcome Outcome, to StateKind, elapsed time.Duration)
	StaleOutcome(ctx context.Context, state StateKind, outcome Outcome)
	RunCompleted(ctx context.Context, duration time.Duration, err error)
}

// DefaultLogger writes engine events through the logger package.
type DefaultLogger struct {
	level slog.Level
}

// NewDefaultLogger logs state entries and transitions at debug level and run
// boundaries at info level.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{level: slog.LevelDebug}
}

func (l *DefaultLogger) RunStarted(ctx context.Context, machine string, start StateKind) {
	logger.Get(ctx).InfoContext(ctx, "State machine run started",
		"machine", machine,
		"start", start)
}

func (l *DefaultLogger) StateEntered(ctx context.Context, state StateKind) {
	logger.Get(ctx).Log(ctx, l.level, "State entered", "state", state)
}

func (l *DefaultLogger) TransitionExecuted(
	ctx context.Context,
	from StateKind,
	outcome Outcome,
	to StateKind,
	elapsed time.Duration,
) {
	fields := []any{
		"from", from,
		"outcome", outcome.Kind(),
		"to", to,
		"duration_ms", elapsed.Milliseconds(),
	}

	if err := outcomeErr(outcome); err != nil {
		fields = append(fields, "error", err)
	}

	logger.Get(ctx).Log(ctx, l.level, "Transition executed", fields...)
}

func (l *DefaultLogger) StaleOutcome(ctx context.Context, state StateKind, outcome Outcome) {
	logger.Get(ctx).WarnContext(ctx, "Dropped outcome from inactive state",
		"state", state,
		"outcome", outcome.Kind())
}

func (l *DefaultLogger) RunCompleted(ctx context.Context, duration time.Duration, err error) {
	if err != nil {
		logger.Get(ctx).WarnContext(ctx, "State machine run completed with error",
			"duration_ms", duration.Milliseconds(),
			"error", err)

		return
	}

	logger.Get(ctx).InfoContext(ctx, "State machine run completed",
		"duration_ms", duration.Milliseconds())
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) RunStarted(context.Context, string, StateKind)                           {}
func (NopLogger) StateEntered(context.Context, StateKind)                                 {}
func (NopLogger) TransitionExecuted(context.Context, StateKind, Outcome, StateKind, time.Duration) {}
func (NopLogger) StaleOutcome(context.Context, StateKind, Outcome)                        {}
func (NopLogger) RunCompleted(context.Context, time.Duration, error)                      {}
