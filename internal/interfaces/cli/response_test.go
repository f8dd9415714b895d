package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bookkeep/backend/internal/application/bookkeeping"
	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{"", ExitOK},
		{shared.CodeInvalidInput, ExitInvalidInput},
		{shared.CodeInvalidAmount, ExitInvalidInput},
		{shared.CodeCurrencyMismatch, ExitInvalidInput},
		{shared.CodeNotFound, ExitInvalidInput},
		{shared.CodeOverApplication, ExitBusinessRule},
		{shared.CodeInsufficientBalance, ExitBusinessRule},
		{CodeInternal, ExitInternal},
		{"SOMETHING_ELSE", ExitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.code))
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	t.Run("wrapped domain error keeps its code", func(t *testing.T) {
		err := fmt.Errorf("fresh balances: %w", shared.ErrCurrencyMismatch)
		resp := NewErrorResponse("req-1", err)
		assert.False(t, resp.Success)
		assert.Equal(t, "req-1", resp.RequestID)
		require.NotNil(t, resp.Error)
		assert.Equal(t, shared.CodeCurrencyMismatch, resp.Error.Code)
		assert.Equal(t, err.Error(), resp.Error.Message)
		assert.Empty(t, resp.Error.Fields)
	})

	t.Run("validation fields are carried", func(t *testing.T) {
		verr := &bookkeeping.ValidationError{
			DomainError: shared.NewDomainError(shared.CodeInvalidInput, "request validation failed"),
			Fields:      []bookkeeping.FieldError{{Field: "mode", Message: "mode is required"}},
		}
		resp := NewErrorResponse("req-2", verr)
		assert.Equal(t, shared.CodeInvalidInput, resp.Error.Code)
		assert.Len(t, resp.Error.Fields, 1)
	})

	t.Run("plain error is internal", func(t *testing.T) {
		resp := NewErrorResponse("", errors.New("disk on fire"))
		assert.Equal(t, CodeInternal, resp.Error.Code)
	})
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse("req-3", map[string]int{"n": 1})
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "req-3", resp.RequestID)
}
