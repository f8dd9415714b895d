package tax

import (
	"fmt"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LineItem is one row of a transaction. Absent references are nil, never empty strings.
type LineItem struct {
	ID          string
	Amount      valueobject.Money
	TaxCodeID   *string
	AccountID   *string
	Description string
}

// Bucket aggregates the tax of one simple or component tax code across all lines
type Bucket struct {
	TaxCodeID   string
	Name        string
	Rate        decimal.Decimal
	Amount      valueobject.Money  // computed
	Override    *valueobject.Money // operator-entered replacement, nil when not overridden
	IsComponent bool
	ParentID    *string
}

// EffectiveAmount returns the override when present, otherwise the computed amount
func (b Bucket) EffectiveAmount() valueobject.Money {
	if b.Override != nil {
		return *b.Override
	}
	return b.Amount
}

// LineResult is the derived tax of one input line
type LineResult struct {
	Index    int
	LineID   string
	Amount   valueobject.Money
	Tax      LineTaxResult
	Excluded bool // the line failed validation and contributes nothing
}

// TotalsSnapshot is the result of one aggregation pass
type TotalsSnapshot struct {
	Currency          valueobject.Currency
	Mode              PricingMode
	SubTotal          valueobject.Money
	ComputedTaxAmount valueobject.Money
	TaxAmount         valueobject.Money
	TotalAmount       valueobject.Money
	Buckets           []Bucket
	Lines             []LineResult
	OverrideActive    bool
	MixedTaxKinds     bool
	Issues            []Issue
}

// BucketIDs returns bucket tax code ids in display order
func (s TotalsSnapshot) BucketIDs() []string {
	ids := make([]string, len(s.Buckets))
	for i, b := range s.Buckets {
		ids[i] = b.TaxCodeID
	}
	return ids
}

// Bucket returns the bucket for a tax code id
func (s TotalsSnapshot) Bucket(id string) (Bucket, bool) {
	for _, b := range s.Buckets {
		if b.TaxCodeID == id {
			return b, true
		}
	}
	return Bucket{}, false
}

// HasComponentBuckets reports whether any bucket belongs to a composite
func (s TotalsSnapshot) HasComponentBuckets() bool {
	for _, b := range s.Buckets {
		if b.IsComponent {
			return true
		}
	}
	return false
}

// AggregateInput carries everything one recomputation needs
type AggregateInput struct {
	Currency valueobject.Currency
	Mode     PricingMode
	Lines    []LineItem
	Registry *Registry
	Override *ManualOverride
}

// AggregatorOptions tunes aggregation
type AggregatorOptions struct {
	Calc CalcOptions
	// AllowMixedKinds, when false, adds a MIXED_TAX_KINDS warning if component and
	// simple buckets appear in the same transaction. The arithmetic is unaffected.
	AllowMixedKinds bool
}

// Aggregator combines line taxes into transaction totals.
// It holds no state between calls and is safe for concurrent use.
type Aggregator struct {
	calc            *Calculator
	allowMixedKinds bool
}

// NewAggregator creates an aggregator
func NewAggregator(opts AggregatorOptions) *Aggregator {
	return &Aggregator{
		calc:            NewCalculator(opts.Calc),
		allowMixedKinds: opts.AllowMixedKinds,
	}
}

// Aggregate computes subtotal, tax buckets and totals for the given lines.
// Problems with individual lines or reference data are reported as issues on the
// snapshot; only a malformed request (unknown mode, missing currency) is an error.
func (a *Aggregator) Aggregate(in AggregateInput) (TotalsSnapshot, error) {
	if !in.Mode.IsValid() {
		return TotalsSnapshot{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("unknown pricing mode %q", in.Mode))
	}
	if in.Currency == "" {
		return TotalsSnapshot{}, shared.NewDomainError(shared.CodeInvalidInput, "transaction currency is required")
	}

	zero := valueobject.Zero(in.Currency)
	snap := TotalsSnapshot{
		Currency: in.Currency,
		Mode:     in.Mode,
		SubTotal: zero,
		Lines:    make([]LineResult, 0, len(in.Lines)),
	}

	bucketIndex := make(map[string]int)
	for i, line := range in.Lines {
		lr := LineResult{Index: i, LineID: line.ID, Amount: line.Amount, Tax: LineTaxResult{TotalTax: zero}}

		if issue, ok := checkLineAmount(line, in.Currency); !ok {
			lr.Excluded = true
			snap.Lines = append(snap.Lines, lr)
			snap.Issues = append(snap.Issues, issue.forLine(i, line.ID))
			continue
		}
		amount := line.Amount.Round2()
		lr.Amount = amount
		snap.SubTotal = snap.SubTotal.MustAdd(amount)

		code, issue := resolveTaxCode(line, in.Registry)
		if issue != nil {
			snap.Issues = append(snap.Issues, issue.forLine(i, line.ID))
		}
		tax, issues := a.calc.ComputeLineTax(amount, code, in.Mode, in.Registry)
		for _, is := range issues {
			snap.Issues = append(snap.Issues, is.forLine(i, line.ID))
		}
		lr.Tax = tax
		snap.Lines = append(snap.Lines, lr)

		for _, comp := range tax.PerComponent {
			idx, exists := bucketIndex[comp.TaxCodeID]
			if !exists {
				idx = len(snap.Buckets)
				bucketIndex[comp.TaxCodeID] = idx
				snap.Buckets = append(snap.Buckets, newBucket(comp.TaxCodeID, in.Registry, zero))
			}
			snap.Buckets[idx].Amount = snap.Buckets[idx].Amount.MustAdd(comp.Amount).Round2()
		}
	}
	snap.SubTotal = snap.SubTotal.Round2()

	snap.ComputedTaxAmount = sumBuckets(snap.Buckets, zero, Bucket.computed)
	snap.TaxAmount = snap.ComputedTaxAmount
	snap.MixedTaxKinds = mixedKinds(snap.Buckets)
	if snap.MixedTaxKinds && !a.allowMixedKinds {
		snap.Issues = append(snap.Issues, newIssue(IssueMixedTaxKinds, "",
			"transaction mixes composite and simple tax codes"))
	}

	if in.Override != nil && !in.Override.IsEmpty() {
		snap.Issues = append(snap.Issues, applyOverride(&snap, *in.Override)...)
	}

	snap.TotalAmount = totalFor(snap.SubTotal, snap.TaxAmount, in.Mode)
	return snap, nil
}

func (b Bucket) computed() valueobject.Money { return b.Amount }

func totalFor(subTotal, taxAmount valueobject.Money, mode PricingMode) valueobject.Money {
	if mode == PricingModeExclusive {
		return subTotal.MustAdd(taxAmount).Round2()
	}
	return subTotal
}

func sumBuckets(buckets []Bucket, zero valueobject.Money, pick func(Bucket) valueobject.Money) valueobject.Money {
	sum := zero
	for _, b := range buckets {
		sum = sum.MustAdd(pick(b)).Round2()
	}
	return sum
}

func checkLineAmount(line LineItem, currency valueobject.Currency) (Issue, bool) {
	if line.Amount.Currency() != currency {
		return newIssue(IssueCurrencyMismatch, "",
			fmt.Sprintf("line amount currency %q differs from transaction currency %s", line.Amount.Currency(), currency)), false
	}
	if line.Amount.IsNegative() {
		return newIssue(IssueInvalidAmount, "",
			fmt.Sprintf("line amount %s is negative; line excluded", line.Amount.StringFixed())), false
	}
	return Issue{}, true
}

// resolveTaxCode maps a line's tax reference to a code. A dangling reference
// is treated as untaxed and reported.
func resolveTaxCode(line LineItem, reg *Registry) (*TaxCode, *Issue) {
	if line.TaxCodeID == nil || *line.TaxCodeID == "" {
		return nil, nil
	}
	code, ok := reg.GetByID(*line.TaxCodeID)
	if !ok {
		issue := newIssue(IssueUnknownTaxCode, *line.TaxCodeID,
			fmt.Sprintf("tax code %s not found; line treated as untaxed", *line.TaxCodeID))
		return nil, &issue
	}
	return &code, nil
}

func newBucket(id string, reg *Registry, zero valueobject.Money) Bucket {
	b := Bucket{TaxCodeID: id, Amount: zero}
	if code, ok := reg.GetByID(id); ok {
		b.Name = code.Name
		b.Rate = code.Rate
		b.IsComponent = !code.IsTopLevel()
		b.ParentID = code.ParentID
	}
	return b
}

func mixedKinds(buckets []Bucket) bool {
	var component, simple bool
	for _, b := range buckets {
		if b.IsComponent {
			component = true
		} else {
			simple = true
		}
	}
	return component && simple
}
