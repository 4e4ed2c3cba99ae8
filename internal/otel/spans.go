package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Standard attribute keys for bridge spans: console connect/auth, broker
// publish, and reconnect attempts.
var (
	AttrSubject      = attribute.Key("bridge.subject")
	AttrQueueGroup   = attribute.Key("bridge.queue_group")
	AttrConsoleAddr  = attribute.Key("bridge.econ.addr")
	AttrRole         = attribute.Key("bridge.role")
	AttrReconnectTry = attribute.Key("bridge.econ.reconnect_attempt")
)

func effectiveTracer(tracer trace.Tracer) trace.Tracer {
	if tracer == nil {
		return nooptrace.NewTracerProvider().Tracer(TracerName)
	}
	return tracer
}

// StartSpan is a convenience wrapper that starts an internal span with
// common attributes. A nil tracer is treated as a no-op tracer, so callers
// that never wired one don't need to guard every call site.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return effectiveTracer(tracer).Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartClientSpan starts a span for an outbound call (console connect/auth,
// broker publish). A nil tracer is treated as a no-op tracer.
func StartClientSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return effectiveTracer(tracer).Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
