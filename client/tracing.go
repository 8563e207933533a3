package client

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/localrivet/gocdp/client"
	spanName   = "cdp.send"

	attrMethod       = "cdp.method"
	attrSessionID    = "cdp.session_id"
	attrConnectionID = "cdp.connection_id"
	attrRequestID    = "cdp.request_id"
	attrOutcome      = "cdp.outcome"
)

// Command outcomes, used as span attribute and metric label.
const (
	outcomeOK            = "ok"
	outcomeProtocol      = "protocol_error"
	outcomeSerialization = "serialization_error"
	outcomeClosed        = "connection_closed"
	outcomeCancelled     = "cancelled"
	outcomeTransport     = "transport_error"
	outcomeOther         = "error"
)

func newTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName)
}

func (c *Client) startSpan(ctx context.Context, method, sessionID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrConnectionID, c.id),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(attrSessionID, sessionID))
	}
	return c.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}

// endSpan records the command's outcome on the span and in metrics.
func (c *Client) endSpan(span trace.Span, method string, err error) {
	outcome := outcomeOf(err)
	c.metrics.commandDone(method, outcome)

	span.SetAttributes(attribute.String(attrOutcome, outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case IsProtocolError(err):
		return outcomeProtocol
	case IsSerializationError(err):
		return outcomeSerialization
	case IsConnectionClosed(err):
		return outcomeClosed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCancelled
	case IsTransportError(err):
		return outcomeTransport
	default:
		return outcomeOther
	}
}
