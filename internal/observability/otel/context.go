package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type handleKey struct{}

// Handle wraps tracer and shutdown
type Handle struct {
	Tracer   trace.Tracer
	Shutdown func(context.Context) error
}

// WithHandle stores the OTel Handle in context.
func WithHandle(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// From retrieves the OTel Handle from context.
// Returns nil if OTel is not enabled.
func From(ctx context.Context) *Handle {
	h, _ := ctx.Value(handleKey{}).(*Handle)
	return h
}

// StartSpan starts a span when tracing is enabled. Without a Handle the
// returned span is a no-op, so callers can always End it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	h := From(ctx)
	if h == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return h.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) and ends span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed")
	} else {
		span.SetStatus(codes.Ok, "success")
	}
	span.End()
}
