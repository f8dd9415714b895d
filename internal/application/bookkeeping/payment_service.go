package bookkeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/bookkeep/backend/internal/domain/payment"
	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
	"github.com/bookkeep/backend/internal/infrastructure/logger"
	"github.com/bookkeep/backend/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StrategyProvider looks up allocation strategies by name
type StrategyProvider interface {
	GetAllocationStrategy(name string) (payment.AllocationStrategy, error)
}

// PaymentService allocates received payments and plans their commit
type PaymentService struct {
	opts       Options
	strategies StrategyProvider
	validate   *validator.Validate
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(strategies StrategyProvider, opts Options) *PaymentService {
	return &PaymentService{
		opts:       opts,
		strategies: strategies,
		validate:   newValidator(),
	}
}

// Allocate distributes the received amount across the candidates.
// The whole request fails when the applied total would exceed the received amount.
func (s *PaymentService) Allocate(ctx context.Context, req AllocateRequest) (*AllocateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "allocate")
	defer span.End()

	start := time.Now()
	id := uuid.New()
	log := logger.WithLogger(ctx, s.opts.logger()).With(zap.String("allocation_id", id.String()))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllocationID, id.String(),
		telemetry.SpanAttrCandidateCount, len(req.Candidates),
		telemetry.SpanAttrEdit, len(req.Previous) > 0,
	)

	strategyName, alloc, err := s.allocate(ctx, req)
	if err != nil {
		code := shared.CodeOf(err)
		telemetry.RecordError(span, err)
		s.opts.Metrics.RecordFailure(ctx, telemetry.OperationAllocate, code, time.Since(start))
		log.Warn("allocation rejected",
			zap.String("strategy", strategyName),
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, err
	}

	resp := newAllocateResponse(id, strategyName, alloc, AllocationDisplay{
		Received:  alloc.Received.Format(s.opts.Locale),
		Applied:   alloc.TotalApplied.Format(s.opts.Locale),
		Unapplied: alloc.Unapplied.Format(s.opts.Locale),
	})

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStrategy, strategyName,
		telemetry.SpanAttrCurrency, resp.Currency,
		telemetry.SpanAttrReceived, alloc.Received.StringFixed(),
		telemetry.SpanAttrUnapplied, alloc.Unapplied.StringFixed(),
		telemetry.SpanAttrSelectedCount, len(alloc.SelectedLines()),
	)
	telemetry.SetOK(span)
	s.opts.Metrics.RecordAllocation(ctx, strategyName, resp.Currency,
		alloc.TotalApplied.Amount(), alloc.Unapplied.Amount(), time.Since(start))

	log.Debug("allocation computed",
		zap.String("strategy", strategyName),
		zap.String("applied", alloc.TotalApplied.StringFixed()),
		zap.String("unapplied", alloc.Unapplied.StringFixed()),
	)
	return resp, nil
}

func (s *PaymentService) allocate(ctx context.Context, req AllocateRequest) (string, *payment.Allocation, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return "", nil, err
	}

	name := s.strategyName(req)
	strategy, err := s.strategies.GetAllocationStrategy(name)
	if err != nil {
		return name, nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	domainReq, err := s.toAllocationRequest(req)
	if err != nil {
		return name, nil, err
	}

	alloc, err := strategy.Allocate(ctx, domainReq)
	if err != nil {
		return name, nil, err
	}
	return name, alloc, nil
}

func (s *PaymentService) strategyName(req AllocateRequest) string {
	switch {
	case req.Strategy != "":
		return req.Strategy
	case len(req.Requested) > 0:
		return "manual"
	default:
		return s.opts.DefaultStrategy
	}
}

func (s *PaymentService) toAllocationRequest(req AllocateRequest) (payment.AllocationRequest, error) {
	currency := s.opts.currencyOr(req.Currency)

	received, err := valueobject.NewMoney(req.Received, currency)
	if err != nil {
		return payment.AllocationRequest{}, err
	}
	candidates, err := toCandidates(req.Candidates, currency)
	if err != nil {
		return payment.AllocationRequest{}, err
	}
	requested, err := toMoneyMap(req.Requested, currency)
	if err != nil {
		return payment.AllocationRequest{}, err
	}
	previous, err := toMoneyMap(req.Previous, currency)
	if err != nil {
		return payment.AllocationRequest{}, err
	}

	return payment.AllocationRequest{
		Received:   received,
		Candidates: candidates,
		Requested:  requested,
		Previous:   previous,
	}, nil
}

// PlanCommit recomputes the allocation and checks every delta against the
// fresh balances. Nothing is planned when any invoice lacks the balance.
func (s *PaymentService) PlanCommit(ctx context.Context, req CommitRequest) (*CommitResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "commit")
	defer span.End()

	start := time.Now()
	id := uuid.New()
	log := logger.WithLogger(ctx, s.opts.logger()).With(zap.String("allocation_id", id.String()))
	telemetry.SetAttribute(span, telemetry.SpanAttrAllocationID, id.String())

	fail := func(err error) (*CommitResponse, error) {
		code := shared.CodeOf(err)
		telemetry.RecordError(span, err)
		s.opts.Metrics.RecordFailure(ctx, telemetry.OperationCommit, code, time.Since(start))
		log.Warn("commit rejected", zap.String("code", code), zap.Error(err))
		return nil, err
	}

	_, alloc, err := s.allocate(ctx, req.Allocation)
	if err != nil {
		return fail(err)
	}

	fresh, err := toMoneyMap(req.FreshBalances, alloc.Received.Currency())
	if err != nil {
		return fail(fmt.Errorf("fresh balances: %w", err))
	}

	plan, err := payment.PlanCommit(alloc, fresh)
	if err != nil {
		return fail(err)
	}

	for _, c := range plan.Changes {
		if c.Overpaid {
			log.Warn("invoice overpaid", zap.String("invoice_id", c.InvoiceID), zap.String("after", c.After.StringFixed()))
		}
	}
	telemetry.AddEvent(span, "commit_planned",
		"changes", len(plan.Changes),
		"payment_balance", plan.PaymentBalance.StringFixed(),
	)
	telemetry.SetOK(span)

	log.Debug("commit planned", zap.Int("changes", len(plan.Changes)))
	return newCommitResponse(id, plan, alloc), nil
}

// InvoiceBalance reconciles an invoice against the payments already applied to it
func (s *PaymentService) InvoiceBalance(ctx context.Context, req BalanceRequest) (*BalanceResponse, error) {
	_, span := telemetry.StartServiceSpan(ctx, "payment", "invoice_balance")
	defer span.End()

	resp, err := s.invoiceBalance(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return resp, nil
}

func (s *PaymentService) invoiceBalance(req BalanceRequest) (*BalanceResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	currency := s.opts.currencyOr(req.Currency)

	original, err := valueobject.NewMoney(req.Original, currency)
	if err != nil {
		return nil, err
	}
	prior := make([]valueobject.Money, 0, len(req.Prior))
	for _, p := range req.Prior {
		m, err := valueobject.NewMoney(p, currency)
		if err != nil {
			return nil, err
		}
		prior = append(prior, m)
	}

	result, err := payment.InvoiceBalanceAfter(original, prior)
	if err != nil {
		return nil, err
	}
	paid, err := payment.AmountPaid(original, result.Balance)
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		Currency:   string(currency),
		Balance:    valueobject.NewWireAmount(result.Balance),
		AmountPaid: valueobject.NewWireAmount(paid),
		Overpaid:   result.Overpaid,
		Display:    result.Balance.Format(s.opts.Locale),
	}, nil
}
