// Package payment distributes a received payment across open invoices and
// derives the balance changes that committing the distribution implies.
package payment

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
)

// Candidate is an open invoice or bill a payment may be applied to
type Candidate struct {
	InvoiceID      string
	Number         string
	CurrentBalance valueobject.Money
	InvoiceDate    time.Time
}

// AllocationLine is the applied amount for one candidate
type AllocationLine struct {
	InvoiceID       string
	Number          string
	Applied         valueobject.Money
	Selected        bool
	PreviousApplied valueobject.Money // zero outside edit mode
	Delta           valueobject.Money // Applied - PreviousApplied; what the invoice balance moves by
	Ceiling         valueobject.Money // current balance plus previous application
}

// Allocation is the result of distributing one received amount.
// Lines follow candidate order, or oldest-first for auto-apply.
type Allocation struct {
	Received     valueobject.Money
	Lines        []AllocationLine
	TotalApplied valueobject.Money
	Unapplied    valueobject.Money
}

// Line returns the allocation line for an invoice
func (a *Allocation) Line(invoiceID string) (AllocationLine, bool) {
	for _, l := range a.Lines {
		if l.InvoiceID == invoiceID {
			return l, true
		}
	}
	return AllocationLine{}, false
}

// SelectedLines returns the lines that carry an application
func (a *Allocation) SelectedLines() []AllocationLine {
	out := make([]AllocationLine, 0, len(a.Lines))
	for _, l := range a.Lines {
		if l.Selected {
			out = append(out, l)
		}
	}
	return out
}

// Conserves reports whether applied plus unapplied equals the received amount exactly
func (a *Allocation) Conserves() bool {
	sum := a.Unapplied
	for _, l := range a.SelectedLines() {
		sum = sum.MustAdd(l.Applied)
	}
	return sum.Equals(a.Received)
}

// Allocate applies the requested amount to each candidate, clamped to that
// candidate's current balance. A candidate without a request, with a zero
// request, or with nothing left to pay is left unselected. The whole call fails when the applied total
// exceeds the received amount.
func Allocate(received valueobject.Money, candidates []Candidate, requested map[string]valueobject.Money) (*Allocation, error) {
	return Edit(received, candidates, nil, requested)
}

// Edit re-derives an existing allocation. previous holds what each invoice was
// applied before the edit; its balance ceiling is its current balance plus that
// amount. Invoices missing from requested keep their previous application.
func Edit(received valueobject.Money, candidates []Candidate, previous, requested map[string]valueobject.Money) (*Allocation, error) {
	if err := checkReceived(received); err != nil {
		return nil, err
	}
	index, err := indexCandidates(candidates, received.Currency())
	if err != nil {
		return nil, err
	}
	if err := checkKnown("previous application", previous, index, received.Currency()); err != nil {
		return nil, err
	}
	if err := checkKnown("requested application", requested, index, received.Currency()); err != nil {
		return nil, err
	}

	zero := valueobject.Zero(received.Currency())
	alloc := &Allocation{Received: received.Round2(), TotalApplied: zero}
	for _, c := range candidates {
		prev := amountOr(previous, c.InvoiceID, zero)
		want, ok := requested[c.InvoiceID]
		if !ok {
			want = prev
		}
		line := newLine(c, prev)
		if want.IsPositive() {
			line.Applied = want.Round2().Min(line.Ceiling)
			line.Selected = line.Applied.IsPositive()
		}
		alloc.addLine(line)
	}
	return alloc.finish()
}

// AutoApply applies the received amount oldest-first by invoice date until it
// runs out. Invoices dated the same keep their input order.
func AutoApply(received valueobject.Money, candidates []Candidate) (*Allocation, error) {
	return AutoApplyEdit(received, candidates, nil)
}

// AutoApplyEdit is AutoApply against ceilings widened by previous applications
func AutoApplyEdit(received valueobject.Money, candidates []Candidate, previous map[string]valueobject.Money) (*Allocation, error) {
	if err := checkReceived(received); err != nil {
		return nil, err
	}
	index, err := indexCandidates(candidates, received.Currency())
	if err != nil {
		return nil, err
	}
	if err := checkKnown("previous application", previous, index, received.Currency()); err != nil {
		return nil, err
	}

	ordered := OldestFirst(candidates)
	zero := valueobject.Zero(received.Currency())
	alloc := &Allocation{Received: received.Round2(), TotalApplied: zero}
	remaining := alloc.Received
	for _, c := range ordered {
		line := newLine(c, amountOr(previous, c.InvoiceID, zero))
		if remaining.IsPositive() && line.Ceiling.IsPositive() {
			line.Applied = remaining.Min(line.Ceiling)
			line.Selected = true
			remaining = remaining.MustSubtract(line.Applied)
		}
		alloc.addLine(line)
	}
	return alloc.finish()
}

// OldestFirst returns a copy of candidates sorted by invoice date, stable
func OldestFirst(candidates []Candidate) []Candidate {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		return a.InvoiceDate.Compare(b.InvoiceDate)
	})
	return sorted
}

// ceilingFor is the most that can be applied to a candidate, never below zero
func ceilingFor(c Candidate, previous valueobject.Money) valueobject.Money {
	ceiling := c.CurrentBalance.Round2().MustAdd(previous.Round2())
	if ceiling.IsNegative() {
		return valueobject.Zero(ceiling.Currency())
	}
	return ceiling
}

func newLine(c Candidate, previous valueobject.Money) AllocationLine {
	zero := valueobject.Zero(previous.Currency())
	return AllocationLine{
		InvoiceID:       c.InvoiceID,
		Number:          c.Number,
		Applied:         zero,
		PreviousApplied: previous.Round2(),
		Ceiling:         ceilingFor(c, previous),
	}
}

func (a *Allocation) addLine(line AllocationLine) {
	line.Delta = line.Applied.MustSubtract(line.PreviousApplied)
	a.Lines = append(a.Lines, line)
	if line.Selected {
		a.TotalApplied = a.TotalApplied.MustAdd(line.Applied).Round2()
	}
}

func (a *Allocation) finish() (*Allocation, error) {
	if a.TotalApplied.Amount().GreaterThan(a.Received.Amount()) {
		return nil, shared.NewDomainError(shared.CodeOverApplication,
			fmt.Sprintf("applied total %s exceeds received amount %s", a.TotalApplied.StringFixed(), a.Received.StringFixed()))
	}
	a.Unapplied = a.Received.MustSubtract(a.TotalApplied).Round2()
	return a, nil
}

func checkReceived(received valueobject.Money) error {
	if received.Currency() == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "received amount has no currency")
	}
	if received.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("received amount %s must not be negative", received.StringFixed()))
	}
	return nil
}

func indexCandidates(candidates []Candidate, currency valueobject.Currency) (map[string]Candidate, error) {
	index := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		if c.InvoiceID == "" {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "candidate invoice id is required")
		}
		if _, dup := index[c.InvoiceID]; dup {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("invoice %s listed twice", c.InvoiceID))
		}
		if c.CurrentBalance.Currency() != currency {
			return nil, shared.NewDomainError(shared.CodeCurrencyMismatch,
				fmt.Sprintf("invoice %s is in %q, payment is in %s", c.InvoiceID, c.CurrentBalance.Currency(), currency))
		}
		index[c.InvoiceID] = c
	}
	return index, nil
}

// checkKnown validates a per-invoice amount map in sorted id order so the
// reported error does not depend on map iteration.
func checkKnown(what string, amounts map[string]valueobject.Money, index map[string]Candidate, currency valueobject.Currency) error {
	for _, id := range slices.Sorted(maps.Keys(amounts)) {
		v := amounts[id]
		if _, ok := index[id]; !ok {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("%s for invoice %s, which is not a candidate", what, id))
		}
		if v.Currency() != currency {
			return shared.NewDomainError(shared.CodeCurrencyMismatch,
				fmt.Sprintf("%s for invoice %s is in %q, payment is in %s", what, id, v.Currency(), currency))
		}
		if v.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidAmount,
				fmt.Sprintf("%s for invoice %s is negative", what, id))
		}
	}
	return nil
}

func amountOr(m map[string]valueobject.Money, id string, fallback valueobject.Money) valueobject.Money {
	if v, ok := m[id]; ok {
		return v
	}
	return fallback
}
