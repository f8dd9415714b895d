package bookkeeping

import (
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
	"github.com/bookkeep/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// TaxCodeDTO is one configured tax code
type TaxCodeDTO struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name"`
	Rate        decimal.Decimal `json:"rate"`
	IsComposite bool            `json:"isComposite"`
	ParentID    *string         `json:"parentId"`
}

// LineItemDTO is one transaction line. Empty references are treated as absent.
type LineItemDTO struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	SalesTaxID  *string         `json:"salesTaxId"`
	AccountID   *string         `json:"accountId"`
	Description string          `json:"description"`
}

// OverrideDTO is an operator-entered tax amount. TaxAmount is the simple-tax
// scalar; PerBucket takes precedence when set.
type OverrideDTO struct {
	TaxAmount *decimal.Decimal           `json:"taxAmount"`
	PerBucket map[string]decimal.Decimal `json:"perBucket"`
	Basis     []string                   `json:"basis"`
}

// TotalsRequest asks for the totals of one transaction
type TotalsRequest struct {
	Currency string        `json:"currency" validate:"omitempty,len=3,alpha"`
	Mode     string        `json:"mode" validate:"required,oneof=exclusive inclusive"`
	TaxCodes []TaxCodeDTO  `json:"taxCodes" validate:"dive"`
	Lines    []LineItemDTO `json:"lineItems" validate:"dive"`
	Override *OverrideDTO  `json:"override"`
}

// BucketDTO is one tax bucket of the response
type BucketDTO struct {
	TaxCodeID   string                  `json:"taxCodeId"`
	Name        string                  `json:"name"`
	Rate        decimal.Decimal         `json:"rate"`
	Amount      valueobject.WireAmount  `json:"amount"`
	Override    *valueobject.WireAmount `json:"override,omitempty"`
	Effective   valueobject.WireAmount  `json:"effectiveAmount"`
	IsComponent bool                    `json:"isComponent"`
	ParentID    *string                 `json:"parentId,omitempty"`
}

// LineTaxDTO is the derived tax of one line
type LineTaxDTO struct {
	Index        int                               `json:"index"`
	LineID       string                            `json:"lineId,omitempty"`
	TaxAmount    valueobject.WireAmount            `json:"taxAmount"`
	PerComponent map[string]valueobject.WireAmount `json:"perComponent,omitempty"`
	Excluded     bool                              `json:"excluded,omitempty"`
}

// TotalsDisplay holds localized strings for the headline amounts
type TotalsDisplay struct {
	SubTotal    string `json:"subTotal"`
	TaxAmount   string `json:"taxAmount"`
	TotalAmount string `json:"totalAmount"`
}

// TotalsResponse is the computed snapshot plus its persistence payload
type TotalsResponse struct {
	Currency          string                 `json:"currency"`
	Mode              string                 `json:"mode"`
	SubTotal          valueobject.WireAmount `json:"subTotal"`
	ComputedTaxAmount valueobject.WireAmount `json:"computedTaxAmount"`
	TaxAmount         valueobject.WireAmount `json:"taxAmount"`
	TotalAmount       valueobject.WireAmount `json:"totalAmount"`
	Buckets           []BucketDTO            `json:"buckets"`
	Lines             []LineTaxDTO           `json:"lines"`
	OverrideActive    bool                   `json:"overrideActive"`
	MixedTaxKinds     bool                   `json:"mixedTaxKinds"`
	Issues            []tax.Issue            `json:"issues"`
	Payload           tax.TotalsPayload      `json:"payload"`
	Display           TotalsDisplay          `json:"display"`
}

func (d TaxCodeDTO) toDomain() tax.TaxCode {
	return tax.TaxCode{
		ID:          d.ID,
		Name:        d.Name,
		Rate:        d.Rate,
		IsComposite: d.IsComposite,
		ParentID:    tax.NormalizeRef(d.ParentID),
	}
}

func toLineItems(dtos []LineItemDTO, currency valueobject.Currency) ([]tax.LineItem, error) {
	lines := make([]tax.LineItem, 0, len(dtos))
	for _, d := range dtos {
		amount, err := valueobject.NewMoney(d.Amount, currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, tax.LineItem{
			ID:          d.ID,
			Amount:      amount,
			TaxCodeID:   tax.NormalizeRef(d.SalesTaxID),
			AccountID:   tax.NormalizeRef(d.AccountID),
			Description: d.Description,
		})
	}
	return lines, nil
}

func (d *OverrideDTO) toDomain(currency valueobject.Currency) (*tax.ManualOverride, error) {
	if d == nil {
		return nil, nil
	}
	o := &tax.ManualOverride{Basis: d.Basis}
	if d.TaxAmount != nil {
		m, err := valueobject.NewMoney(*d.TaxAmount, currency)
		if err != nil {
			return nil, err
		}
		o.Scalar = &m
	}
	if len(d.PerBucket) > 0 {
		o.PerBucket = make(map[string]valueobject.Money, len(d.PerBucket))
		for id, v := range d.PerBucket {
			m, err := valueobject.NewMoney(v, currency)
			if err != nil {
				return nil, err
			}
			o.PerBucket[id] = m
		}
	}
	return o, nil
}

func newTotalsResponse(snap tax.TotalsSnapshot, lines []tax.LineItem, display TotalsDisplay) *TotalsResponse {
	resp := &TotalsResponse{
		Currency:          string(snap.Currency),
		Mode:              snap.Mode.String(),
		SubTotal:          valueobject.NewWireAmount(snap.SubTotal),
		ComputedTaxAmount: valueobject.NewWireAmount(snap.ComputedTaxAmount),
		TaxAmount:         valueobject.NewWireAmount(snap.TaxAmount),
		TotalAmount:       valueobject.NewWireAmount(snap.TotalAmount),
		Buckets:           make([]BucketDTO, 0, len(snap.Buckets)),
		Lines:             make([]LineTaxDTO, 0, len(snap.Lines)),
		OverrideActive:    snap.OverrideActive,
		MixedTaxKinds:     snap.MixedTaxKinds,
		Issues:            snap.Issues,
		Payload:           snap.PersistencePayload(lines),
		Display:           display,
	}
	if resp.Issues == nil {
		resp.Issues = []tax.Issue{}
	}

	for _, b := range snap.Buckets {
		dto := BucketDTO{
			TaxCodeID:   b.TaxCodeID,
			Name:        b.Name,
			Rate:        b.Rate,
			Amount:      valueobject.NewWireAmount(b.Amount),
			Effective:   valueobject.NewWireAmount(b.EffectiveAmount()),
			IsComponent: b.IsComponent,
			ParentID:    b.ParentID,
		}
		if b.Override != nil {
			w := valueobject.NewWireAmount(*b.Override)
			dto.Override = &w
		}
		resp.Buckets = append(resp.Buckets, dto)
	}

	for _, l := range snap.Lines {
		dto := LineTaxDTO{
			Index:     l.Index,
			LineID:    l.LineID,
			TaxAmount: valueobject.NewWireAmount(l.Tax.TotalTax),
			Excluded:  l.Excluded,
		}
		if len(l.Tax.PerComponent) > 0 {
			dto.PerComponent = make(map[string]valueobject.WireAmount, len(l.Tax.PerComponent))
			for _, c := range l.Tax.PerComponent {
				dto.PerComponent[c.TaxCodeID] = valueobject.NewWireAmount(c.Amount)
			}
		}
		resp.Lines = append(resp.Lines, dto)
	}

	return resp
}
