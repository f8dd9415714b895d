package telemetry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Providers bundles the tracer and meter providers built by Setup.
type Providers struct {
	Tracer  *TracerProvider
	Meter   *MeterProvider
	Metrics *BookkeepingMetrics
}

// Setup builds tracing and metrics from one telemetry config.
// With cfg.Enabled false both providers are no-ops and Metrics records nothing.
func Setup(ctx context.Context, cfg Config, exportInterval time.Duration, logger *zap.Logger) (*Providers, error) {
	tp, err := NewTracerProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	mp, err := NewMeterProvider(ctx, MetricsConfig{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ExportInterval:    exportInterval,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	bm, err := NewBookkeepingMetrics(BookkeepingMetricsConfig{
		Meter:  mp.Meter(MeterName),
		Logger: logger,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	return &Providers{Tracer: tp, Meter: mp, Metrics: bm}, nil
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return errors.Join(p.Tracer.Shutdown(ctx), p.Meter.Shutdown(ctx))
}
