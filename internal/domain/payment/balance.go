package payment

import (
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
)

// BalanceResult is an invoice balance together with its overpayment flag
type BalanceResult struct {
	Balance  valueobject.Money
	Overpaid bool // balance went below zero
}

// InvoiceBalanceAfter returns round2(original - Σ prior). A negative balance is
// returned as is and flagged as an overpayment.
func InvoiceBalanceAfter(original valueobject.Money, prior []valueobject.Money) (BalanceResult, error) {
	balance := original.Round2()
	for _, p := range prior {
		next, err := balance.Subtract(p.Round2())
		if err != nil {
			return BalanceResult{}, err
		}
		balance = next
	}
	balance = balance.Round2()
	return BalanceResult{Balance: balance, Overpaid: balance.IsNegative()}, nil
}

// AmountPaid is what has been paid against an invoice, for display
func AmountPaid(original, current valueobject.Money) (valueobject.Money, error) {
	paid, err := original.Round2().Subtract(current.Round2())
	if err != nil {
		return valueobject.Money{}, err
	}
	return paid.Round2(), nil
}

// PaymentBalance is the balance stored on the payment itself: the unapplied
// credit as a negative amount, or zero when the payment is fully applied.
func PaymentBalance(unapplied valueobject.Money) valueobject.Money {
	if !unapplied.IsPositive() {
		return valueobject.Zero(unapplied.Currency())
	}
	return unapplied.Round2().Negate()
}
