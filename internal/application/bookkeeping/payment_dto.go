package bookkeeping

import (
	"time"

	"github.com/bookkeep/backend/internal/domain/payment"
	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format accepted for invoice dates
const DateLayout = "2006-01-02"

// CandidateDTO is one open invoice
type CandidateDTO struct {
	InvoiceID      string          `json:"invoiceId" validate:"required"`
	Number         string          `json:"number"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	InvoiceDate    string          `json:"invoiceDate" validate:"omitempty,datetime=2006-01-02"`
}

// AllocateRequest asks for the distribution of one received payment.
// Previous holds the amounts already applied when an existing payment is edited.
// Without a strategy, a request carrying amounts is allocated manually and any
// other request uses the configured default.
type AllocateRequest struct {
	Currency   string                     `json:"currency" validate:"omitempty,len=3,alpha"`
	Received   decimal.Decimal            `json:"received"`
	Strategy   string                     `json:"strategy" validate:"omitempty,oneof=fifo manual"`
	Candidates []CandidateDTO             `json:"candidates" validate:"dive"`
	Requested  map[string]decimal.Decimal `json:"requested"`
	Previous   map[string]decimal.Decimal `json:"previous"`
}

// AllocationLineDTO is one candidate's share of the payment
type AllocationLineDTO struct {
	InvoiceID       string                 `json:"invoiceId"`
	Number          string                 `json:"number,omitempty"`
	Applied         valueobject.WireAmount `json:"applied"`
	Selected        bool                   `json:"selected"`
	PreviousApplied valueobject.WireAmount `json:"previousApplied"`
	Delta           valueobject.WireAmount `json:"delta"`
	Ceiling         valueobject.WireAmount `json:"ceiling"`
}

// AllocationDisplay holds localized strings for the headline amounts
type AllocationDisplay struct {
	Received  string `json:"received"`
	Applied   string `json:"applied"`
	Unapplied string `json:"unapplied"`
}

// AllocateResponse is a computed allocation plus its persistence payload
type AllocateResponse struct {
	AllocationID   uuid.UUID              `json:"allocationId"`
	Strategy       string                 `json:"strategy"`
	Currency       string                 `json:"currency"`
	Received       valueobject.WireAmount `json:"received"`
	TotalApplied   valueobject.WireAmount `json:"totalApplied"`
	Unapplied      valueobject.WireAmount `json:"unapplied"`
	PaymentBalance valueobject.WireAmount `json:"paymentBalance"`
	Lines          []AllocationLineDTO    `json:"lines"`
	Payload        payment.Payload        `json:"payload"`
	Display        AllocationDisplay      `json:"display"`
}

// CommitRequest re-checks an allocation against balances read under lock
type CommitRequest struct {
	Allocation    AllocateRequest            `json:"allocation"`
	FreshBalances map[string]decimal.Decimal `json:"freshBalances"`
}

// BalanceChangeDTO is the balance mutation for one invoice
type BalanceChangeDTO struct {
	InvoiceID string                 `json:"invoiceId"`
	Before    valueobject.WireAmount `json:"before"`
	Applied   valueobject.WireAmount `json:"applied"`
	After     valueobject.WireAmount `json:"after"`
	Overpaid  bool                   `json:"overpaid"`
}

// CommitResponse lists every mutation committing the allocation applies
type CommitResponse struct {
	AllocationID   uuid.UUID              `json:"allocationId"`
	Changes        []BalanceChangeDTO     `json:"changes"`
	PaymentBalance valueobject.WireAmount `json:"paymentBalance"`
	Payload        payment.Payload        `json:"payload"`
}

// BalanceRequest asks for an invoice balance after prior payments
type BalanceRequest struct {
	Currency string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Original decimal.Decimal   `json:"original"`
	Prior    []decimal.Decimal `json:"priorPayments"`
}

// BalanceResponse is the reconciled invoice balance
type BalanceResponse struct {
	Currency   string                 `json:"currency"`
	Balance    valueobject.WireAmount `json:"balance"`
	AmountPaid valueobject.WireAmount `json:"amountPaid"`
	Overpaid   bool                   `json:"overpaid"`
	Display    string                 `json:"display"`
}

func toCandidates(dtos []CandidateDTO, currency valueobject.Currency) ([]payment.Candidate, error) {
	out := make([]payment.Candidate, 0, len(dtos))
	for _, d := range dtos {
		balance, err := valueobject.NewMoney(d.CurrentBalance, currency)
		if err != nil {
			return nil, err
		}
		var date time.Time
		if d.InvoiceDate != "" {
			date, err = time.Parse(DateLayout, d.InvoiceDate)
			if err != nil {
				return nil, shared.NewDomainError(shared.CodeInvalidInput,
					"invoice "+d.InvoiceID+" has an invalid date "+d.InvoiceDate)
			}
		}
		out = append(out, payment.Candidate{
			InvoiceID:      d.InvoiceID,
			Number:         d.Number,
			CurrentBalance: balance,
			InvoiceDate:    date,
		})
	}
	return out, nil
}

func toMoneyMap(in map[string]decimal.Decimal, currency valueobject.Currency) (map[string]valueobject.Money, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]valueobject.Money, len(in))
	for id, v := range in {
		m, err := valueobject.NewMoney(v, currency)
		if err != nil {
			return nil, err
		}
		out[id] = m
	}
	return out, nil
}

func newAllocateResponse(id uuid.UUID, strategy string, alloc *payment.Allocation, display AllocationDisplay) *AllocateResponse {
	resp := &AllocateResponse{
		AllocationID:   id,
		Strategy:       strategy,
		Currency:       string(alloc.Received.Currency()),
		Received:       valueobject.NewWireAmount(alloc.Received),
		TotalApplied:   valueobject.NewWireAmount(alloc.TotalApplied),
		Unapplied:      valueobject.NewWireAmount(alloc.Unapplied),
		PaymentBalance: valueobject.NewWireAmount(payment.PaymentBalance(alloc.Unapplied)),
		Lines:          make([]AllocationLineDTO, 0, len(alloc.Lines)),
		Payload:        alloc.Payload(),
		Display:        display,
	}
	for _, l := range alloc.Lines {
		resp.Lines = append(resp.Lines, AllocationLineDTO{
			InvoiceID:       l.InvoiceID,
			Number:          l.Number,
			Applied:         valueobject.NewWireAmount(l.Applied),
			Selected:        l.Selected,
			PreviousApplied: valueobject.NewWireAmount(l.PreviousApplied),
			Delta:           valueobject.NewWireAmount(l.Delta),
			Ceiling:         valueobject.NewWireAmount(l.Ceiling),
		})
	}
	return resp
}

func newCommitResponse(id uuid.UUID, plan *payment.CommitPlan, alloc *payment.Allocation) *CommitResponse {
	resp := &CommitResponse{
		AllocationID:   id,
		Changes:        make([]BalanceChangeDTO, 0, len(plan.Changes)),
		PaymentBalance: valueobject.NewWireAmount(plan.PaymentBalance),
		Payload:        alloc.Payload(),
	}
	for _, c := range plan.Changes {
		resp.Changes = append(resp.Changes, BalanceChangeDTO{
			InvoiceID: c.InvoiceID,
			Before:    valueobject.NewWireAmount(c.Before),
			Applied:   valueobject.NewWireAmount(c.Applied),
			After:     valueobject.NewWireAmount(c.After),
			Overpaid:  c.Overpaid,
		})
	}
	return resp
}
