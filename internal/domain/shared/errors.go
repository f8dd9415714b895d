package shared

import "errors"

// Error codes shared by the tax and payment domains
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeUnknownTaxCode      = "UNKNOWN_TAX_CODE"
	CodeOverApplication     = "OVER_APPLICATION"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeCurrencyMismatch    = "CURRENCY_MISMATCH"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is(err, shared.ErrOverApplication) match errors built with NewDomainError.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidAmount       = NewDomainError(CodeInvalidAmount, "Amount must be a finite, non-negative value")
	ErrUnknownTaxCode      = NewDomainError(CodeUnknownTaxCode, "Tax code not found")
	ErrOverApplication     = NewDomainError(CodeOverApplication, "Applied amount exceeds the received amount")
	ErrInsufficientBalance = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrCurrencyMismatch    = NewDomainError(CodeCurrencyMismatch, "Currencies do not match")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
)

// CodeOf returns the domain error code carried by err, or "" when err is not a DomainError.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
