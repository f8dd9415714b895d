package bookkeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/tax"
	"github.com/bookkeep/backend/internal/infrastructure/logger"
	"github.com/bookkeep/backend/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// TotalsService computes transaction totals from JSON-shaped requests.
// It keeps no state between calls.
type TotalsService struct {
	opts       Options
	aggregator *tax.Aggregator
	validate   *validator.Validate
}

// NewTotalsService creates a new TotalsService
func NewTotalsService(opts Options) *TotalsService {
	return &TotalsService{
		opts: opts,
		aggregator: tax.NewAggregator(tax.AggregatorOptions{
			Calc:            opts.Calc,
			AllowMixedKinds: opts.AllowMixedKinds,
		}),
		validate: newValidator(),
	}
}

// Compute validates the request, aggregates the lines and returns the snapshot
// with its persistence payload. Line problems come back as issues, not errors.
func (s *TotalsService) Compute(ctx context.Context, req TotalsRequest) (*TotalsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "totals", "compute")
	defer span.End()

	start := time.Now()
	log := logger.WithLogger(ctx, s.opts.logger())

	resp, err := s.compute(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.opts.Metrics.RecordFailure(ctx, telemetry.OperationTotals, shared.CodeOf(err), time.Since(start))
		log.Warn("totals rejected", zap.String("code", shared.CodeOf(err)), zap.Error(err))
		return nil, err
	}

	for _, issue := range resp.Issues {
		telemetry.AddEvent(span, "tax_issue",
			telemetry.SpanAttrIssueCode, issue.Code,
			telemetry.SpanAttrLineIndex, issue.LineIndex,
		)
		s.opts.Metrics.RecordTaxIssue(ctx, issue.Code)
		log.Warn("tax issue",
			zap.String("code", issue.Code),
			zap.Int("line_index", issue.LineIndex),
			zap.String("tax_code_id", issue.TaxCodeID),
			zap.String("message", issue.Message),
		)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTaxMode, resp.Mode,
		telemetry.SpanAttrCurrency, resp.Currency,
		telemetry.SpanAttrLineCount, len(req.Lines),
		telemetry.SpanAttrBucketCount, len(resp.Buckets),
		telemetry.SpanAttrIssueCount, len(resp.Issues),
		telemetry.SpanAttrTotal, resp.TotalAmount.Decimal().StringFixed(2),
	)
	telemetry.SetOK(span)
	s.opts.Metrics.RecordTotals(ctx, resp.Mode, resp.Currency, resp.TotalAmount.Decimal(), time.Since(start))

	log.Debug("totals computed",
		zap.String("mode", resp.Mode),
		zap.String("total", resp.TotalAmount.Decimal().StringFixed(2)),
		zap.Int("buckets", len(resp.Buckets)),
	)
	return resp, nil
}

func (s *TotalsService) compute(ctx context.Context, req TotalsRequest) (*TotalsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}

	mode, err := tax.ParsePricingMode(req.Mode)
	if err != nil {
		return nil, err
	}
	currency := s.opts.currencyOr(req.Currency)

	codes := make([]tax.TaxCode, 0, len(req.TaxCodes))
	for _, c := range req.TaxCodes {
		codes = append(codes, c.toDomain())
	}
	registry := tax.NewRegistry(codes)

	lines, err := toLineItems(req.Lines, currency)
	if err != nil {
		return nil, fmt.Errorf("line items: %w", err)
	}
	override, err := req.Override.toDomain(currency)
	if err != nil {
		return nil, fmt.Errorf("override: %w", err)
	}

	snap, err := s.aggregator.Aggregate(tax.AggregateInput{
		Currency: currency,
		Mode:     mode,
		Lines:    lines,
		Registry: registry,
		Override: override,
	})
	if err != nil {
		return nil, err
	}

	display := TotalsDisplay{
		SubTotal:    snap.SubTotal.Format(s.opts.Locale),
		TaxAmount:   snap.TaxAmount.Format(s.opts.Locale),
		TotalAmount: snap.TotalAmount.Format(s.opts.Locale),
	}
	return newTotalsResponse(snap, lines, display), nil
}

// ValidateTaxCodes reports configuration problems in a tax code list
func (s *TotalsService) ValidateTaxCodes(ctx context.Context, codes []TaxCodeDTO) ([]tax.Issue, error) {
	_, span := telemetry.StartServiceSpan(ctx, "totals", "validate_tax_codes")
	defer span.End()

	for i, c := range codes {
		if err := validateRequest(s.validate, c); err != nil {
			err = fmt.Errorf("taxCodes[%d]: %w", i, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	domainCodes := make([]tax.TaxCode, 0, len(codes))
	for _, c := range codes {
		domainCodes = append(domainCodes, c.toDomain())
	}
	issues := tax.NewRegistry(domainCodes).Validate()
	telemetry.SetAttribute(span, telemetry.SpanAttrIssueCount, len(issues))
	if issues == nil {
		issues = []tax.Issue{}
	}
	return issues, nil
}
