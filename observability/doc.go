// Package observability provides OpenTelemetry tracing and metrics for
// token validation and engine discovery.
//
// Instruments are always created on the global providers, which are no-ops
// until Setup installs OTLP exporters:
//
//	p, err := observability.Setup(ctx, cfg)
//	defer p.Shutdown(ctx)
//
//	op := observability.Begin(ctx, metrics, observability.OpValidateToken)
//	defer op.End("ok", nil)
package observability
