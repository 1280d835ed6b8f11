package observability

import (
	"context"
	"errors"
	"fmt"
)

// ShutdownFunc flushes and stops the exporters started by Setup.
type ShutdownFunc func(ctx context.Context) error

// Setup starts tracing and metric export when cfg.Enabled is set and returns
// the instruments plus a shutdown func. Disabled export still yields working
// instruments on the global no-op meter.
func Setup(ctx context.Context, cfg *Config) (*Metrics, ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		m, err := NewMetrics(Meter(defaultTracerName))
		return m, noop, err
	}

	tp, err := InitTracer(ctx, cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("tracer: %w", err)
	}
	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, noop, fmt.Errorf("meter: %w", err)
	}
	m, err := NewMetrics(mp.Meter(defaultTracerName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, noop, err
	}
	return m, func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
