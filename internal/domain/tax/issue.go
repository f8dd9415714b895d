package tax

import (
	"github.com/bookkeep/backend/internal/domain/shared"
)

// Issue codes reported alongside a totals snapshot. None of them abort a computation.
const (
	IssueUnknownTaxCode   = shared.CodeUnknownTaxCode
	IssueInvalidAmount    = shared.CodeInvalidAmount
	IssueCurrencyMismatch = shared.CodeCurrencyMismatch
	IssueEmptyComposite   = "EMPTY_COMPOSITE_TAX_CODE"
	IssueNonTopLevel      = "NON_TOP_LEVEL_TAX_CODE"
	IssueStaleOverride    = "STALE_OVERRIDE"
	IssueOverrideScope    = "OVERRIDE_SCOPE"
	IssueMixedTaxKinds    = "MIXED_TAX_KINDS"
	IssueDuplicateTaxCode = "DUPLICATE_TAX_CODE"
	IssueOrphanComponent  = "ORPHAN_COMPONENT"
	IssueInvalidTaxCode   = "INVALID_TAX_CODE"
)

// NoLine marks an issue that is not tied to a specific line
const NoLine = -1

// Issue is a non-fatal warning raised while computing totals.
type Issue struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LineIndex int    `json:"lineIndex"`
	LineID    string `json:"lineId,omitempty"`
	TaxCodeID string `json:"taxCodeId,omitempty"`
}

func newIssue(code, taxCodeID, message string) Issue {
	return Issue{Code: code, Message: message, LineIndex: NoLine, TaxCodeID: taxCodeID}
}

// forLine attaches line coordinates to an issue
func (i Issue) forLine(index int, lineID string) Issue {
	i.LineIndex = index
	i.LineID = lineID
	return i
}

// HasIssue reports whether any issue carries the given code
func HasIssue(issues []Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}
