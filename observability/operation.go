package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation names recorded by the bridge.
const (
	OpInitialize     = "initialize"
	OpWaitUntilReady = "wait_until_ready"
	OpValidateToken  = "validate_token"
	OpRequireScope   = "validate_token_require_scope"
	OpFetchUserinfo  = "fetch_userinfo"
	OpUninitialize   = "uninitialize"
)

// Operation tracks the span and metrics of one bridge call.
type Operation struct {
	ctx     context.Context
	span    trace.Span
	name    string
	started time.Time
	metrics *Metrics
}

// Begin starts a span named kcoidc.<name> and records the call start. A nil
// metrics skips metric recording.
func Begin(ctx context.Context, metrics *Metrics, name string, attrs ...attribute.KeyValue) *Operation {
	ctx, span := StartSpan(ctx, "kcoidc."+name, trace.WithAttributes(attrs...))
	span.SetAttributes(attribute.String(AttrOperation, name))
	metrics.RecordCallStart(ctx, name)
	return &Operation{
		ctx:     ctx,
		span:    span,
		name:    name,
		started: time.Now(),
		metrics: metrics,
	}
}

// Context returns the context carrying the operation span.
func (op *Operation) Context() context.Context { return op.ctx }

// SetAttributes adds attributes to the operation span.
func (op *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	op.span.SetAttributes(attrs...)
}

// End finishes the span and records the result.
func (op *Operation) End(status string, err error) {
	if err != nil {
		SetSpanError(op.ctx, err)
	}
	op.span.SetAttributes(attribute.String(AttrStatus, status))
	op.span.End()
	op.metrics.RecordCallEnd(op.ctx, op.name, status, time.Since(op.started))
}
