// Package observability wires OpenTelemetry tracing around page
// serialization.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

const instrumentationName = "github.com/ajitpratap0/nebula-blocks"

// Tracer returns the tracer of the current global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Span wraps an OpenTelemetry span and buffers attributes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// StartSpan starts a span named operation as a child of ctx.
func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operation)
	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute, applied when the span ends.
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// End records err, if any, and ends the span.
func (s *Span) End(err error) {
	s.attributes = append(s.attributes, attribute.Int64("duration_us", time.Since(s.startTime).Microseconds()))
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			s.attributes = append(s.attributes, attribute.String("error.type", string(e.Type)))
		}
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}
