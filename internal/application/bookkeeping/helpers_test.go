package bookkeeping

import (
	"context"
	"testing"

	"github.com/bookkeep/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ref(s string) *string {
	return &s
}

// harness wires options to an observed logger, a span recorder and a manual metric reader
type harness struct {
	opts   Options
	logs   *observer.ObservedLogs
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := telemetry.NewBookkeepingMetrics(telemetry.BookkeepingMetricsConfig{
		Meter: mp.Meter(telemetry.MeterName),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	opts := DefaultOptions()
	opts.Logger = zap.New(core)
	opts.Metrics = metrics
	return &harness{opts: opts, logs: logs, spans: sr, reader: reader}
}

// counterTotal sums every data point of an int64 counter
func (h *harness) counterTotal(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func sampleTaxCodes() []TaxCodeDTO {
	return []TaxCodeDTO{
		{ID: "hst", Name: "HST", Rate: dec("13")},
		{ID: "gst-qst", Name: "GST + QST", IsComposite: true},
		{ID: "gst-part", Name: "GST", Rate: dec("5"), ParentID: ref("gst-qst")},
		{ID: "qst-part", Name: "QST", Rate: dec("7"), ParentID: ref("gst-qst")},
	}
}
