package cli

import (
	"errors"

	"github.com/bookkeep/backend/internal/application/bookkeeping"
	"github.com/bookkeep/backend/internal/domain/shared"
)

// Process exit codes, grouped the way error codes are
const (
	ExitOK           = 0
	ExitInternal     = 1
	ExitInvalidInput = 2
	ExitBusinessRule = 3
)

// Response is the envelope every command writes to stdout
type Response struct {
	Success   bool       `json:"success"`
	RequestID string     `json:"requestId,omitempty"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string                   `json:"code"`
	Message string                   `json:"message"`
	Fields  []bookkeeping.FieldError `json:"fields,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(requestID string, data any) Response {
	return Response{Success: true, RequestID: requestID, Data: data}
}

// NewErrorResponse maps err onto an error envelope. Errors that carry no
// domain code are reported as INTERNAL.
func NewErrorResponse(requestID string, err error) Response {
	info := &ErrorInfo{Code: shared.CodeOf(err), Message: err.Error()}
	if info.Code == "" {
		info.Code = CodeInternal
	}
	var verr *bookkeeping.ValidationError
	if errors.As(err, &verr) {
		info.Fields = verr.Fields
	}
	return Response{RequestID: requestID, Error: info}
}

// CodeInternal is reported for failures outside the domain, such as unreadable input
const CodeInternal = "INTERNAL"

// ExitCode returns the process exit code for an error code
func ExitCode(code string) int {
	switch code {
	case "":
		return ExitOK
	case shared.CodeInvalidInput, shared.CodeInvalidAmount, shared.CodeCurrencyMismatch,
		shared.CodeUnknownTaxCode, shared.CodeNotFound:
		return ExitInvalidInput
	case shared.CodeOverApplication, shared.CodeInsufficientBalance:
		return ExitBusinessRule
	default:
		return ExitInternal
	}
}
