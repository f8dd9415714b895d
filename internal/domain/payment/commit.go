package payment

import (
	"fmt"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
)

// BalanceChange is the balance mutation committing an allocation applies to one invoice
type BalanceChange struct {
	InvoiceID string
	Before    valueobject.Money
	Applied   valueobject.Money // the line's delta; negative when an edit frees balance
	After     valueobject.Money
	Overpaid  bool
}

// CommitPlan is the full set of mutations for one allocation
type CommitPlan struct {
	Changes        []BalanceChange
	PaymentBalance valueobject.Money
}

// PlanCommit re-checks an allocation against balances read while the caller
// holds its per-invoice locks. Any line whose delta exceeds the fresh balance,
// or whose invoice is missing, fails the whole plan with INSUFFICIENT_BALANCE.
// Lines with a zero delta produce no change.
func PlanCommit(alloc *Allocation, fresh map[string]valueobject.Money) (*CommitPlan, error) {
	if alloc == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "allocation is required")
	}

	plan := &CommitPlan{PaymentBalance: PaymentBalance(alloc.Unapplied)}
	for _, line := range alloc.Lines {
		if line.Delta.IsZero() {
			continue
		}
		before, ok := fresh[line.InvoiceID]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeInsufficientBalance,
				fmt.Sprintf("invoice %s no longer has an open balance", line.InvoiceID))
		}
		exceeds, err := line.Delta.GreaterThan(before)
		if err != nil {
			return nil, err
		}
		if exceeds {
			return nil, shared.NewDomainError(shared.CodeInsufficientBalance,
				fmt.Sprintf("invoice %s balance %s is less than the %s being applied; refresh and retry",
					line.InvoiceID, before.StringFixed(), line.Delta.StringFixed()))
		}
		after := before.MustSubtract(line.Delta).Round2()
		plan.Changes = append(plan.Changes, BalanceChange{
			InvoiceID: line.InvoiceID,
			Before:    before,
			Applied:   line.Delta,
			After:     after,
			Overpaid:  after.IsNegative(),
		})
	}
	return plan, nil
}
