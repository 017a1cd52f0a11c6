package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanDiscovery = "kcoidc.discovery"
	SpanUserinfo  = "kcoidc.userinfo"
)

// Attribute keys.
const (
	AttrOperation = "kcoidc.operation"
	AttrStatus    = "kcoidc.status"
	AttrIssuer    = "kcoidc.issuer"
	AttrContextID = "kcoidc.context_id"
	AttrTokenType = "kcoidc.token_type"
)

// Tracer returns the library tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span on the library tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartIssuerSpan starts a client span for a request to iss.
func StartIssuerSpan(ctx context.Context, name, iss string) (context.Context, trace.Span) {
	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(AttrIssuer, iss)),
	)
}

// SetSpanError marks the span in ctx as failed. It is a no-op for spans
// that are not recording.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
