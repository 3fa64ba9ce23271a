package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("weave")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span covering a whole workflow run.
	StartRunSpan(ctx context.Context, workflow string, workflowID uint64) (context.Context, trace.Span)

	// StartNodeSpan starts a span for a node execution, child of the run span.
	StartNodeSpan(ctx context.Context, node, kind string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by OpenTelemetry.
//
// Spans come from the global OTel tracer provider. Configure the
// provider before calling:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartRunSpan(ctx context.Context, workflow string, workflowID uint64) (context.Context, trace.Span) {
	return tracer.Start(ctx, "weave.run",
		trace.WithAttributes(
			attribute.String("workflow.name", workflow),
			attribute.Int64("workflow.id", int64(workflowID)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartNodeSpan(ctx context.Context, node, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "weave.node."+node,
		trace.WithAttributes(
			attribute.String("node.name", node),
			attribute.String("node.kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
