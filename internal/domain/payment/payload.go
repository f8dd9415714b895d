package payment

import (
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
)

// LinePayload is one applied invoice in the payment store's wire shape
type LinePayload struct {
	TransactionID string                 `json:"transactionId"`
	Amount        valueobject.WireAmount `json:"amount"`
}

// Payload is the persisted form of an allocation
type Payload struct {
	LineItems       []LinePayload          `json:"lineItems"`
	UnappliedAmount valueobject.WireAmount `json:"unappliedAmount"`
}

// Payload returns the wire shape of the allocation; only selected lines are listed
func (a *Allocation) Payload() Payload {
	selected := a.SelectedLines()
	out := Payload{
		LineItems:       make([]LinePayload, 0, len(selected)),
		UnappliedAmount: valueobject.NewWireAmount(a.Unapplied),
	}
	for _, l := range selected {
		out.LineItems = append(out.LineItems, LinePayload{
			TransactionID: l.InvoiceID,
			Amount:        valueobject.NewWireAmount(l.Applied),
		})
	}
	return out
}
