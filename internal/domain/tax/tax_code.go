// Package tax computes per-line sales tax and transaction totals for
// cheques, bills, deposits and invoices.
package tax

import (
	"fmt"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Kind classifies a tax code by its place in the composite hierarchy
type Kind string

const (
	KindSimple    Kind = "simple"    // standalone rate, selectable on a line
	KindComposite Kind = "composite" // no own rate, sum of its components
	KindComponent Kind = "component" // child of a composite, never selected directly
)

// TaxCode is a sales-tax rule as configured in the tax settings.
// Rate is a percentage (13 means 13%).
type TaxCode struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Rate        decimal.Decimal `json:"rate"`
	IsComposite bool            `json:"isComposite"`
	ParentID    *string         `json:"parentId"`
}

// Kind returns the code's classification
func (c TaxCode) Kind() Kind {
	switch {
	case c.ParentID != nil:
		return KindComponent
	case c.IsComposite:
		return KindComposite
	default:
		return KindSimple
	}
}

// IsTopLevel reports whether the code may be selected on a line
func (c TaxCode) IsTopLevel() bool {
	return c.ParentID == nil
}

// Validate checks the simple/composite/component invariant and the rate
func (c TaxCode) Validate() error {
	if c.ID == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "tax code id cannot be empty")
	}
	if c.Rate.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("tax code %s has negative rate %s", c.ID, c.Rate.String()))
	}
	if c.IsComposite && c.ParentID != nil {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("composite tax code %s cannot have a parent", c.ID))
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("tax code %s cannot be its own parent", c.ID))
	}
	return nil
}
