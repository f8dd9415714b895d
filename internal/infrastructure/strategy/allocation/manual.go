package allocation

import (
	"context"

	"github.com/bookkeep/backend/internal/domain/payment"
)

// ManualAllocationStrategy applies the amounts the operator entered per invoice
type ManualAllocationStrategy struct {
	payment.BaseStrategy
}

// NewManualAllocationStrategy creates a new manual allocation strategy
func NewManualAllocationStrategy() *ManualAllocationStrategy {
	return &ManualAllocationStrategy{
		BaseStrategy: payment.NewBaseStrategy(
			"manual",
			"Apply operator-entered amounts, clamped to each invoice balance",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *ManualAllocationStrategy) StrategyType() payment.StrategyType {
	return payment.StrategyTypeManual
}

// Allocate clamps each requested amount and rejects over-application
func (s *ManualAllocationStrategy) Allocate(ctx context.Context, req payment.AllocationRequest) (*payment.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return payment.Edit(req.Received, req.Candidates, req.Previous, req.Requested)
}
