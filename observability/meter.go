package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the voxkit instruments. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	providerCalls    metric.Int64Counter
	providerDuration metric.Float64Histogram
	stages           metric.Int64Counter
	fallbacks        metric.Int64Counter
	sessions         metric.Int64Counter
	sessionDuration  metric.Float64Histogram
	sessionsActive   metric.Int64UpDownCounter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	providerCalls, err := meter.Int64Counter("voxkit.provider.calls",
		metric.WithDescription("Provider calls by provider, kind and result code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voxkit.provider.calls counter: %w", err)
	}

	providerDuration, err := meter.Float64Histogram("voxkit.provider.duration",
		metric.WithDescription("Duration of provider calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voxkit.provider.duration histogram: %w", err)
	}

	stages, err := meter.Int64Counter("voxkit.session.stages",
		metric.WithDescription("Session stages by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voxkit.session.stages counter: %w", err)
	}

	fallbacks, err := meter.Int64Counter("voxkit.fallbacks",
		metric.WithDescription("Fallbacks to the default provider"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voxkit.fallbacks counter: %w", err)
	}

	sessions, err := meter.Int64Counter("voxkit.sessions",
		metric.WithDescription("Finished sessions by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voxkit.sessions counter: %w", err)
	}

	sessionDuration, err := meter.Float64Histogram("voxkit.session.duration",
		metric.WithDescription("Session duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voxkit.session.duration histogram: %w", err)
	}

	sessionsActive, err := meter.Int64UpDownCounter("voxkit.sessions.active",
		metric.WithDescription("Sessions currently open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voxkit.sessions.active gauge: %w", err)
	}

	return &Metrics{
		providerCalls:    providerCalls,
		providerDuration: providerDuration,
		stages:           stages,
		fallbacks:        fallbacks,
		sessions:         sessions,
		sessionDuration:  sessionDuration,
		sessionsActive:   sessionsActive,
	}, nil
}

// RecordProviderCall records one provider invocation. A nil err is recorded
// with code "OK".
func (m *Metrics) RecordProviderCall(ctx context.Context, providerID, kind, operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	code := "OK"
	if err != nil {
		code = string(apperrors.CodeOf(err))
	}
	m.providerCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", providerID),
		attribute.String("kind", kind),
		attribute.String("operation", operation),
		attribute.String("code", code),
	))
	m.providerDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", providerID),
		attribute.String("kind", kind),
	))
}

// RecordStage counts a session stage.
func (m *Metrics) RecordStage(ctx context.Context, stage, providerID string) {
	if m == nil {
		return
	}
	m.stages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("provider", providerID),
	))
}

// RecordFallback counts a switch to the default provider.
func (m *Metrics) RecordFallback(ctx context.Context, stage, to string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("provider", to),
	))
}

// SessionStarted increments the open session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

// SessionEnded records a finished session.
func (m *Metrics) SessionEnded(ctx context.Context, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1)
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.sessionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}
