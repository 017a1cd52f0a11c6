package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/kcoidc/logger"
)

const instrumentationName = "github.com/kbukum/kcoidc"

// Meter returns the library meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the instruments recorded by the bridge and the engine.
type Metrics struct {
	callTotal      metric.Int64Counter
	callDuration   metric.Float64Histogram
	callActive     metric.Int64UpDownCounter
	discoveryTotal metric.Int64Counter
	keysetUpdates  metric.Int64Counter
	callbackTotal  metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	callTotal, err := meter.Int64Counter("kcoidc.call.total",
		metric.WithDescription("Bridge calls by operation and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kcoidc.call.total counter: %w", err)
	}

	callDuration, err := meter.Float64Histogram("kcoidc.call.duration",
		metric.WithDescription("Duration of bridge calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kcoidc.call.duration histogram: %w", err)
	}

	callActive, err := meter.Int64UpDownCounter("kcoidc.call.active",
		metric.WithDescription("Bridge calls currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kcoidc.call.active gauge: %w", err)
	}

	discoveryTotal, err := meter.Int64Counter("kcoidc.discovery.total",
		metric.WithDescription("Discovery attempts by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kcoidc.discovery.total counter: %w", err)
	}

	keysetUpdates, err := meter.Int64Counter("kcoidc.keyset.updates",
		metric.WithDescription("Key set replacements after a refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kcoidc.keyset.updates counter: %w", err)
	}

	callbackTotal, err := meter.Int64Counter("kcoidc.callback.total",
		metric.WithDescription("Host callbacks dispatched by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating kcoidc.callback.total counter: %w", err)
	}

	return &Metrics{
		callTotal:      callTotal,
		callDuration:   callDuration,
		callActive:     callActive,
		discoveryTotal: discoveryTotal,
		keysetUpdates:  keysetUpdates,
		callbackTotal:  callbackTotal,
	}, nil
}

// DefaultMetrics creates instruments on the global meter. Instrument
// creation on the global delegating meter does not fail, so errors are
// only possible with a custom provider and fall back to nil.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(Meter())
	if err != nil {
		logger.Warn("metrics disabled", logger.ErrorFields("new_metrics", err))
		return nil
	}
	return m
}

// RecordCallStart increments the in-flight call count.
func (m *Metrics) RecordCallStart(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.callActive.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOperation, operation)))
}

// RecordCallEnd decrements the in-flight count and records the result.
func (m *Metrics) RecordCallEnd(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	op := attribute.String(AttrOperation, operation)
	m.callActive.Add(ctx, -1, metric.WithAttributes(op))
	m.callTotal.Add(ctx, 1, metric.WithAttributes(op, attribute.String(AttrStatus, status)))
	m.callDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(op))
}

// RecordDiscovery records a discovery attempt.
func (m *Metrics) RecordDiscovery(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.discoveryTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordKeySetUpdate records a key set replacement.
func (m *Metrics) RecordKeySetUpdate(ctx context.Context) {
	if m == nil {
		return
	}
	m.keysetUpdates.Add(ctx, 1)
}

// RecordCallback records a callback dispatch.
func (m *Metrics) RecordCallback(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.callbackTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
