package allocation

import (
	"context"

	"github.com/bookkeep/backend/internal/domain/payment"
)

// FIFOAllocationStrategy applies payments to the oldest invoices first
type FIFOAllocationStrategy struct {
	payment.BaseStrategy
}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{
		BaseStrategy: payment.NewBaseStrategy(
			"fifo",
			"Apply payments to the oldest invoices first by invoice date",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *FIFOAllocationStrategy) StrategyType() payment.StrategyType {
	return payment.StrategyTypeFIFO
}

// Allocate ignores requested amounts and fills invoices oldest-first.
// When editing, each ceiling is widened by the invoice's previous application.
func (s *FIFOAllocationStrategy) Allocate(ctx context.Context, req payment.AllocationRequest) (*payment.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return payment.AutoApplyEdit(req.Received, req.Candidates, req.Previous)
}
