package tax

import (
	"fmt"
	"strings"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PricingMode says whether line amounts exclude or already include tax.
// One mode applies to every line of a transaction.
type PricingMode string

const (
	PricingModeExclusive PricingMode = "exclusive" // tax added on top of the amount
	PricingModeInclusive PricingMode = "inclusive" // amount already contains tax
)

// IsValid checks if the pricing mode is valid
func (m PricingMode) IsValid() bool {
	return m == PricingModeExclusive || m == PricingModeInclusive
}

// String returns the string representation
func (m PricingMode) String() string {
	return string(m)
}

// ParsePricingMode parses a pricing mode, case-insensitively
func ParsePricingMode(s string) (PricingMode, error) {
	m := PricingMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unknown pricing mode %q", s))
	}
	return m, nil
}

// EmptyCompositePolicy decides what happens when a composite code has no components
type EmptyCompositePolicy string

const (
	// EmptyCompositeReject taxes the line at zero and reports the misconfiguration
	EmptyCompositeReject EmptyCompositePolicy = "reject"
	// EmptyCompositeFallback taxes the line at the composite's own rate, as legacy forms did
	EmptyCompositeFallback EmptyCompositePolicy = "fallback"
)

// IsValid checks if the policy is valid
func (p EmptyCompositePolicy) IsValid() bool {
	return p == EmptyCompositeReject || p == EmptyCompositeFallback
}

// CalcOptions tunes the line calculator
type CalcOptions struct {
	EmptyComposite EmptyCompositePolicy
}

// DefaultCalcOptions rejects empty composites
func DefaultCalcOptions() CalcOptions {
	return CalcOptions{EmptyComposite: EmptyCompositeReject}
}

// ComponentTax is the tax attributed to one leaf or simple tax code
type ComponentTax struct {
	TaxCodeID string
	Amount    valueobject.Money
}

// LineTaxResult is the tax computed for one line
type LineTaxResult struct {
	TotalTax     valueobject.Money
	PerComponent []ComponentTax
}

// Component returns the amount attributed to a tax code id
func (r LineTaxResult) Component(id string) (valueobject.Money, bool) {
	for _, c := range r.PerComponent {
		if c.TaxCodeID == id {
			return c.Amount, true
		}
	}
	return valueobject.Money{}, false
}

// AsMap returns the per-component amounts keyed by tax code id
func (r LineTaxResult) AsMap() map[string]valueobject.Money {
	out := make(map[string]valueobject.Money, len(r.PerComponent))
	for _, c := range r.PerComponent {
		out[c.TaxCodeID] = c.Amount
	}
	return out
}

// Calculator computes the tax on a single line
type Calculator struct {
	opts CalcOptions
}

// NewCalculator creates a calculator; an invalid policy falls back to reject
func NewCalculator(opts CalcOptions) *Calculator {
	if !opts.EmptyComposite.IsValid() {
		opts.EmptyComposite = EmptyCompositeReject
	}
	return &Calculator{opts: opts}
}

// ComputeLineTax computes the tax of one line with default options
func ComputeLineTax(amount valueobject.Money, code *TaxCode, mode PricingMode, reg *Registry) (LineTaxResult, []Issue) {
	return NewCalculator(DefaultCalcOptions()).ComputeLineTax(amount, code, mode, reg)
}

// ComputeLineTax computes the tax of one line. Every component amount is rounded
// to two places before it is added to the line total.
func (c *Calculator) ComputeLineTax(amount valueobject.Money, code *TaxCode, mode PricingMode, reg *Registry) (LineTaxResult, []Issue) {
	result := LineTaxResult{TotalTax: valueobject.Zero(amount.Currency())}
	if code == nil {
		return result, nil
	}

	var issues []Issue
	if code.IsComposite {
		components := reg.ComponentsOf(code.ID)
		if len(components) > 0 {
			for _, comp := range components {
				result.add(comp.ID, taxFor(amount, comp.Rate, mode))
			}
			return result, nil
		}

		issue := newIssue(IssueEmptyComposite, code.ID,
			fmt.Sprintf("composite tax code %s has no components", code.ID))
		if c.opts.EmptyComposite == EmptyCompositeReject {
			issue.Message += "; line taxed at zero"
			return result, []Issue{issue}
		}
		issue.Message += fmt.Sprintf("; using its own rate %s%%", code.Rate.String())
		issues = append(issues, issue)
	} else if !code.IsTopLevel() {
		issues = append(issues, newIssue(IssueNonTopLevel, code.ID,
			fmt.Sprintf("component tax code %s selected directly; taxed at its own rate", code.ID)))
	}

	result.add(code.ID, taxFor(amount, code.Rate, mode))
	return result, issues
}

func (r *LineTaxResult) add(id string, tax valueobject.Money) {
	r.PerComponent = append(r.PerComponent, ComponentTax{TaxCodeID: id, Amount: tax})
	r.TotalTax = r.TotalTax.MustAdd(tax).Round2()
}

// taxFor applies one rate to one amount, rounded to two places
func taxFor(amount valueobject.Money, rate decimal.Decimal, mode PricingMode) valueobject.Money {
	if mode == PricingModeInclusive {
		return amount.EmbeddedPercent(rate)
	}
	return amount.PercentOf(rate)
}
