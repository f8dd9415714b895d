package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MeterName is the meter used for bookkeeping metrics
const MeterName = "bookkeeper"

// BookkeepingMetrics records totals and allocation activity.
type BookkeepingMetrics struct {
	logger *zap.Logger

	totalsComputed     *Counter
	totalsAmountCents  *Counter
	taxIssues          *Counter
	allocations        *Counter
	appliedAmountCents *Counter
	unappliedCents     *Histogram
	duration           *Histogram
}

// Outcome labels a computation result.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
)

// Operation names used in the operation attribute.
const (
	OperationTotals   = "totals"
	OperationAllocate = "allocate"
	OperationCommit   = "commit"
)

// BookkeepingMetricsConfig holds configuration for bookkeeping metrics.
type BookkeepingMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBookkeepingMetrics registers the bookkeeping instruments on cfg.Meter.
func NewBookkeepingMetrics(cfg BookkeepingMetricsConfig) (*BookkeepingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BookkeepingMetrics{logger: logger}

	var err error
	if bm.totalsComputed, err = NewCounter(cfg.Meter,
		"bookkeep_totals_computed_total",
		"Number of transaction totals computed",
		"{transactions}",
	); err != nil {
		return nil, err
	}

	if bm.totalsAmountCents, err = NewCounter(cfg.Meter,
		"bookkeep_totals_amount_cents_total",
		"Sum of computed transaction totals in cents",
		"{cents}",
	); err != nil {
		return nil, err
	}

	if bm.taxIssues, err = NewCounter(cfg.Meter,
		"bookkeep_tax_issues_total",
		"Line problems reported while computing totals",
		"{issues}",
	); err != nil {
		return nil, err
	}

	if bm.allocations, err = NewCounter(cfg.Meter,
		"bookkeep_allocations_total",
		"Payment allocations computed",
		"{allocations}",
	); err != nil {
		return nil, err
	}

	if bm.appliedAmountCents, err = NewCounter(cfg.Meter,
		"bookkeep_applied_amount_cents_total",
		"Sum of amounts applied to invoices in cents",
		"{cents}",
	); err != nil {
		return nil, err
	}

	if bm.unappliedCents, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bookkeep_unapplied_amount_cents",
		Description: "Unapplied remainder per allocation in cents",
		Unit:        "{cents}",
		Boundaries:  []float64{0, 100, 1000, 10000, 100000, 1000000},
	}); err != nil {
		return nil, err
	}

	if bm.duration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bookkeep_operation_duration_seconds",
		Description: "Duration of totals and allocation computations",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordTotals records one computed transaction total.
func (bm *BookkeepingMetrics) RecordTotals(ctx context.Context, mode, currency string, total decimal.Decimal, d time.Duration) {
	if bm == nil {
		return
	}
	bm.totalsComputed.Inc(ctx, AttrTaxMode.String(mode), AttrCurrency.String(currency))
	bm.totalsAmountCents.Add(ctx, toCents(total).Abs().IntPart(), AttrCurrency.String(currency))
	bm.duration.RecordDuration(ctx, d,
		AttrOperation.String(OperationTotals),
		AttrOutcome.String(string(OutcomeSuccess)),
	)
}

// RecordTaxIssue records one reported line problem.
func (bm *BookkeepingMetrics) RecordTaxIssue(ctx context.Context, code string) {
	if bm == nil {
		return
	}
	bm.taxIssues.Inc(ctx, AttrIssueCode.String(code))
}

// RecordAllocation records one successful allocation.
func (bm *BookkeepingMetrics) RecordAllocation(ctx context.Context, strategy, currency string, applied, unapplied decimal.Decimal, d time.Duration) {
	if bm == nil {
		return
	}
	bm.allocations.Inc(ctx, AttrStrategy.String(strategy), AttrOutcome.String(string(OutcomeSuccess)))
	bm.appliedAmountCents.Add(ctx, toCents(applied).IntPart(), AttrCurrency.String(currency))
	bm.unappliedCents.Record(ctx, toCents(unapplied).InexactFloat64(), AttrStrategy.String(strategy))
	bm.duration.RecordDuration(ctx, d,
		AttrOperation.String(OperationAllocate),
		AttrOutcome.String(string(OutcomeSuccess)),
	)
}

// RecordFailure records a rejected operation with its error code.
func (bm *BookkeepingMetrics) RecordFailure(ctx context.Context, operation, errorCode string, d time.Duration) {
	if bm == nil {
		return
	}
	if operation == OperationAllocate {
		bm.allocations.Inc(ctx, AttrOutcome.String(string(OutcomeRejected)), AttrErrorCode.String(errorCode))
	}
	bm.duration.RecordDuration(ctx, d,
		AttrOperation.String(operation),
		AttrOutcome.String(string(OutcomeRejected)),
	)
	bm.logger.Debug("bookkeeping operation rejected",
		zap.String("operation", operation),
		zap.String("error_code", errorCode),
	)
}

func toCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(2).Round(0)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBookkeepingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
