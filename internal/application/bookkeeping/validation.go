package bookkeeping

import (
	"errors"
	"reflect"
	"strings"

	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator that reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is one failed validation rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is an INVALID_INPUT domain error listing every failed field.
// errors.Is(err, shared.ErrInvalidInput) holds for it.
type ValidationError struct {
	*shared.DomainError
	Fields []FieldError `json:"fields"`
}

// Unwrap exposes the domain error
func (e *ValidationError) Unwrap() error {
	return e.DomainError
}

// validateRequest runs struct validation and converts failures to a ValidationError
func validateRequest(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	fields := make([]FieldError, 0, len(validationErrors))
	parts := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := fieldPath(e)
		msg := validationMessage(e)
		fields = append(fields, FieldError{Field: field, Message: msg})
		parts = append(parts, field+": "+msg)
	}

	return &ValidationError{
		DomainError: shared.NewDomainError(shared.CodeInvalidInput,
			"request validation failed: "+strings.Join(parts, "; ")),
		Fields: fields,
	}
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "alpha":
		return "Must contain only letters"
	case "datetime":
		return "Must be a date formatted as " + e.Param()
	case "unique":
		return "Must not contain duplicates"
	case "max":
		return "Must be at most " + e.Param()
	default:
		return "Invalid value"
	}
}
