package payment

import (
	"context"

	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
)

// StrategyType identifies how a strategy chooses applied amounts
type StrategyType string

const (
	StrategyTypeFIFO   StrategyType = "FIFO"   // oldest invoice first
	StrategyTypeManual StrategyType = "MANUAL" // operator-entered amounts
)

// IsValid checks if the strategy type is valid
func (t StrategyType) IsValid() bool {
	switch t {
	case StrategyTypeFIFO, StrategyTypeManual:
		return true
	}
	return false
}

// String returns the string representation
func (t StrategyType) String() string {
	return string(t)
}

// AllocationRequest is everything a strategy needs to produce an allocation.
// Previous is set when an existing payment is being edited.
type AllocationRequest struct {
	Received   valueobject.Money
	Candidates []Candidate
	Requested  map[string]valueobject.Money
	Previous   map[string]valueobject.Money
}

// IsEdit reports whether the request re-derives an existing allocation
func (r AllocationRequest) IsEdit() bool {
	return len(r.Previous) > 0
}

// AllocationStrategy decides how a received payment is spread across candidates
type AllocationStrategy interface {
	// Name returns the unique name of the strategy
	Name() string
	// Description returns a human-readable description
	Description() string
	// StrategyType returns the allocation strategy type
	StrategyType() StrategyType
	// Allocate computes the allocation; it never mutates the request
	Allocate(ctx context.Context, req AllocationRequest) (*Allocation, error)
}

// BaseStrategy provides the name and description of a strategy
type BaseStrategy struct {
	name        string
	description string
}

// NewBaseStrategy creates a new BaseStrategy
func NewBaseStrategy(name, description string) BaseStrategy {
	return BaseStrategy{name: name, description: description}
}

// Name returns the strategy name
func (s BaseStrategy) Name() string {
	return s.name
}

// Description returns the strategy description
func (s BaseStrategy) Description() string {
	return s.description
}
