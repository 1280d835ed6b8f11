// Package observability wires OpenTelemetry tracing and metrics for voxkit.
//
// Setup starts the OTLP HTTP exporters when telemetry export is enabled:
//
//	metrics, shutdown, err := observability.Setup(ctx, &cfg.Telemetry)
//	defer shutdown(ctx)
//
// Pipeline stages and provider calls are traced with StartSpan and
// StartProviderSpan. ServiceHealth aggregates provider probes for the
// /health endpoint.
package observability
