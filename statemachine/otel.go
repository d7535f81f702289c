package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startRunSpan opens the root span of a run. The caller ends it.
//
//nolint:spancheck
func startRunSpan(ctx context.Context, machine, runID string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.run")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("run_id", runID),
	)

	return ctx, span
}

// startStateSpan opens a child span covering one state's lifetime.
//
//nolint:spancheck
func startStateSpan(ctx context.Context, state StateKind, prev Outcome) trace.Span {
	_, span := otel.Tracer(tracerName).Start(ctx, "state."+string(state))
	span.SetAttributes(
		attribute.String("state", string(state)),
		attribute.String("entered_on", string(prev.Kind())),
	)

	return span
}

// endStateSpan closes a state span with the outcome that ended the state.
func endStateSpan(span trace.Span, outcome Outcome, next StateKind) {
	if span == nil {
		return
	}

	span.SetAttributes(
		attribute.String("outcome", string(outcome.Kind())),
		attribute.String("next_state", string(next)),
	)

	if err := outcomeErr(outcome); err != nil && outcome.Kind() == KindFailure {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// endRunSpan closes the root span with the run's result.
func endRunSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
