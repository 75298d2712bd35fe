// Package apm wires OpenTelemetry tracing: exporter selection for the
// process and a small tracer wrapper for application code.
package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span is an otel span with error helpers.
type Span struct {
	trace.Span
}

// NoticeError records err and marks the span failed. nil is ignored.
func (s Span) NoticeError(err error) {
	if err == nil {
		return
	}
	s.RecordError(err)
	s.SetStatus(codes.Error, err.Error())
}

func (s Span) SetAttribute(kv attribute.KeyValue) {
	s.SetAttributes(kv)
}

// Tracer starts spans on the global provider. Spans are no-ops until
// NewTraceProvider installs an exporter.
type Tracer struct {
	tracer trace.Tracer
}

func NewTracer(name string) Tracer {
	return Tracer{tracer: otel.Tracer(name)}
}

func (t Tracer) StartSpanFromContext(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, Span{span}
}
