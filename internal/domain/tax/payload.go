package tax

import (
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
)

// LinePayload is one line in the shape the transaction store accepts.
// SalesTaxID and AccountID are always present on the wire, as null when absent.
type LinePayload struct {
	ID          string                 `json:"id,omitempty"`
	Amount      valueobject.WireAmount `json:"amount"`
	SalesTaxID  *string                `json:"salesTaxId"`
	AccountID   *string                `json:"accountId"`
	Description string                 `json:"description"`
	TaxAmount   valueobject.WireAmount `json:"taxAmount"`
}

// TotalsPayload is the persisted form of a snapshot and its lines
type TotalsPayload struct {
	SubTotal    valueobject.WireAmount `json:"subTotal"`
	TaxAmount   valueobject.WireAmount `json:"taxAmount"`
	TotalAmount valueobject.WireAmount `json:"totalAmount"`
	LineItems   []LinePayload          `json:"lineItems"`
}

// NormalizeRef maps an empty reference to nil so it serializes as null
func NormalizeRef(ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	v := *ref
	return &v
}

// PersistencePayload builds the wire payload for the given lines.
// lines must be the slice the snapshot was computed from. Lines the aggregation
// excluded are left out so the persisted amounts add up to SubTotal.
func (s TotalsSnapshot) PersistencePayload(lines []LineItem) TotalsPayload {
	out := TotalsPayload{
		SubTotal:    valueobject.NewWireAmount(s.SubTotal),
		TaxAmount:   valueobject.NewWireAmount(s.TaxAmount),
		TotalAmount: valueobject.NewWireAmount(s.TotalAmount),
		LineItems:   make([]LinePayload, 0, len(lines)),
	}
	for i, line := range lines {
		if i < len(s.Lines) && s.Lines[i].Excluded {
			continue
		}
		lp := LinePayload{
			ID:          line.ID,
			Amount:      valueobject.NewWireAmount(line.Amount),
			SalesTaxID:  NormalizeRef(line.TaxCodeID),
			AccountID:   NormalizeRef(line.AccountID),
			Description: line.Description,
		}
		if i < len(s.Lines) {
			lp.TaxAmount = valueobject.NewWireAmount(s.Lines[i].Tax.TotalTax)
		}
		out.LineItems = append(out.LineItems, lp)
	}
	return out
}
