package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
)

var (
	_ entityreader.TracingCollector = (*TracingCollector)(nil)
	_ entityreader.SpanContext      = (*OTelSpanContext)(nil)
)

const errorTypeAttribute = "error_type"

// TracingCollector implements entityreader.TracingCollector using the OpenTelemetry tracing API.
// The span of a read pass covers the whole pass: from opening the cursor until the stream is released.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a tracing collector that starts its spans with the given tracer.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan starts a client span carrying attrs and returns the context holding it.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, entityreader.SpanContext) {
	spanCtx, span := t.tracer.Start(
		ctx,
		name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(toAttributes(attrs)...),
	)

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan adds the final attributes, sets the span status, and ends the span.
// An error_type attribute becomes the description of an error status.
func (t *TracingCollector) FinishSpan(spanCtx entityreader.SpanContext, status string, attrs map[string]string) {
	otelSpanCtx, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	otelSpanCtx.span.SetAttributes(toAttributes(attrs)...)
	otelSpanCtx.setSpanStatus(status, attrs[errorTypeAttribute])
	otelSpanCtx.span.End()
}

// OTelSpanContext implements entityreader.SpanContext by wrapping an OpenTelemetry span.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus maps the status of a read pass onto an OpenTelemetry status code.
func (s *OTelSpanContext) SetStatus(status string) {
	s.setSpanStatus(status, "")
}

func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

func (s *OTelSpanContext) setSpanStatus(status string, description string) {
	switch status {
	case "ok", "success":
		s.span.SetStatus(codes.Ok, "")
	case "error":
		if description == "" {
			description = "snapshot read failed"
		}
		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}
