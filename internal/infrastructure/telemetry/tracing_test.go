package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bookkeep/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "totals.compute")
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "totals.compute", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "payment.allocate",
		telemetry.WithAttribute(telemetry.SpanAttrStrategy, "fifo"),
		telemetry.WithAttribute(telemetry.SpanAttrCandidateCount, 3),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "fifo", attrs[telemetry.SpanAttrStrategy].AsString())
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrCandidateCount].AsInt64())
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "payment", "allocate")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "payment.allocate", spans[0].Name())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	id := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTaxMode, "inclusive",
		telemetry.SpanAttrLineCount, 4,
		telemetry.SpanAttrEdit, true,
		telemetry.SpanAttrAllocationID, id,
		42, "non-string key is skipped",
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrCurrency, "CAD")
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Len(t, attrs, 5)
	assert.Equal(t, "inclusive", attrs[telemetry.SpanAttrTaxMode].AsString())
	assert.Equal(t, int64(4), attrs[telemetry.SpanAttrLineCount].AsInt64())
	assert.True(t, attrs[telemetry.SpanAttrEdit].AsBool())
	assert.Equal(t, id.String(), attrs[telemetry.SpanAttrAllocationID].AsString())
	assert.Equal(t, "CAD", attrs[telemetry.SpanAttrCurrency].AsString())
}

func TestAttributeTypes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.SetAttributes(span,
		"i64", int64(7),
		"f64", 1.5,
		"strs", []string{"GST", "PST"},
		"ints", []int{1, 2},
		"i64s", []int64{3},
		"f64s", []float64{0.05},
		"bools", []bool{true},
		"other", struct{ N int }{N: 1},
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, attribute.INT64, attrs["i64"].Type())
	assert.Equal(t, attribute.FLOAT64, attrs["f64"].Type())
	assert.Equal(t, []string{"GST", "PST"}, attrs["strs"].AsStringSlice())
	assert.Equal(t, attribute.INT64SLICE, attrs["ints"].Type())
	assert.Equal(t, attribute.INT64SLICE, attrs["i64s"].Type())
	assert.Equal(t, attribute.FLOAT64SLICE, attrs["f64s"].Type())
	assert.Equal(t, attribute.BOOLSLICE, attrs["bools"].Type())
	assert.Equal(t, "{1}", attrs["other"].AsString())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, errors.New("applied exceeds received"))
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "applied exceeds received", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestRecordError_NilError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, nil)
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Unset, s.Status().Code)
	assert.Empty(t, s.Events())
}

func TestSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.SetOK(span)
	span.End()

	assert.Equal(t, codes.Ok, sr.Ended()[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.AddEvent(span, "tax_issue",
		telemetry.SpanAttrIssueCode, "UNKNOWN_TAX_CODE",
		telemetry.SpanAttrLineIndex, 2,
	)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "tax_issue", events[0].Name)
	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, "UNKNOWN_TAX_CODE", attrs[telemetry.SpanAttrIssueCode].AsString())
	assert.Equal(t, int64(2), attrs[telemetry.SpanAttrLineIndex].AsInt64())
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e", "k", "v")
	})
}

func TestGetTraceAndSpanID(t *testing.T) {
	setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "op")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), telemetry.GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), telemetry.GetSpanID(ctx))
}

func TestNestedSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "payment", "commit")
	_, child := telemetry.StartServiceSpan(ctx, "payment", "plan")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "payment.plan", spans[0].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}
