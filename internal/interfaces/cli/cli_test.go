package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success   bool            `json:"success"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
	Error     *ErrorInfo      `json:"error"`
}

// writeConfig keeps logs out of the test output
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[log]\nlevel = \"debug\"\nformat = \"json\"\noutput = \"" + filepath.ToSlash(filepath.Join(dir, "bookkeeper.log")) + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (int, envelope, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", writeConfig(t)}, args...)
	code := Execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)

	var env envelope
	if stdout.Len() > 0 {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &env), stdout.String())
	}
	return code, env, stderr.String()
}

const totalsRequest = `{
	"mode": "exclusive",
	"taxCodes": [{"id": "hst", "name": "HST", "rate": "13"}],
	"lineItems": [
		{"id": "l1", "amount": 10.01, "salesTaxId": "hst"},
		{"id": "l2", "amount": "20.02", "salesTaxId": "hst"},
		{"id": "l3", "amount": 5}
	]
}`

func TestTotalsCommand(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		code, env, _ := execute(t, totalsRequest, "totals")
		require.Equal(t, ExitOK, code)
		assert.True(t, env.Success)
		assert.NotEmpty(t, env.RequestID)

		var data struct {
			SubTotal    json.Number `json:"subTotal"`
			TaxAmount   json.Number `json:"taxAmount"`
			TotalAmount json.Number `json:"totalAmount"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "35.03", data.SubTotal.String())
		assert.Equal(t, "3.90", data.TaxAmount.String())
		assert.Equal(t, "38.93", data.TotalAmount.String())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bill.json")
		require.NoError(t, os.WriteFile(path, []byte(totalsRequest), 0o600))

		code, env, _ := execute(t, "", "totals", "--file", path)
		require.Equal(t, ExitOK, code)
		assert.True(t, env.Success)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		code, env, _ := execute(t, `{"mode": "gross"}`, "totals")
		assert.Equal(t, ExitInvalidInput, code)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
		require.Len(t, env.Error.Fields, 1)
		assert.Equal(t, "mode", env.Error.Fields[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		code, env, _ := execute(t, `{"mode": `, "totals")
		assert.Equal(t, ExitInvalidInput, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		code, env, _ := execute(t, `{"mode": "exclusive", "lines": []}`, "totals")
		assert.Equal(t, ExitInvalidInput, code)
		assert.Contains(t, env.Error.Message, "lines")
	})

	t.Run("missing file", func(t *testing.T) {
		code, env, _ := execute(t, "", "totals", "-f", filepath.Join(t.TempDir(), "nope.json"))
		assert.Equal(t, ExitInternal, code)
		assert.Equal(t, CodeInternal, env.Error.Code)
	})
}

func TestValidateCodesCommand(t *testing.T) {
	code, env, _ := execute(t, `{"taxCodes": [{"id": "hst", "rate": 13}, {"id": "hst", "rate": 15}]}`, "validate-codes")
	require.Equal(t, ExitOK, code)

	var data ValidateCodesResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Valid)
	require.NotEmpty(t, data.Issues)
	assert.Equal(t, "DUPLICATE_TAX_CODE", data.Issues[0].Code)
}

const allocateRequest = `{
	"received": 500,
	"candidates": [
		{"invoiceId": "inv-2", "currentBalance": 250, "invoiceDate": "2025-02-01"},
		{"invoiceId": "inv-1", "currentBalance": 300, "invoiceDate": "2025-01-01"}
	]
}`

func TestAllocateCommand(t *testing.T) {
	t.Run("fifo", func(t *testing.T) {
		code, env, _ := execute(t, allocateRequest, "allocate", "--pretty")
		require.Equal(t, ExitOK, code)

		var data struct {
			Strategy string `json:"strategy"`
			Payload  struct {
				LineItems []struct {
					TransactionID string      `json:"transactionId"`
					Amount        json.Number `json:"amount"`
				} `json:"lineItems"`
				UnappliedAmount json.Number `json:"unappliedAmount"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "fifo", data.Strategy)
		require.Len(t, data.Payload.LineItems, 2)
		assert.Equal(t, "inv-1", data.Payload.LineItems[0].TransactionID)
		assert.Equal(t, "300.00", data.Payload.LineItems[0].Amount.String())
		assert.Equal(t, "0.00", data.Payload.UnappliedAmount.String())
	})

	t.Run("over-application exits with a business rule code", func(t *testing.T) {
		req := `{"received": 100, "candidates": [{"invoiceId": "a", "currentBalance": 80}, {"invoiceId": "b", "currentBalance": 80}],
			"requested": {"a": 80, "b": 80}}`
		code, env, _ := execute(t, req, "allocate", "--strategy", "manual")
		assert.Equal(t, ExitBusinessRule, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "OVER_APPLICATION", env.Error.Code)
	})
}

func TestCommitCommand(t *testing.T) {
	req := `{
		"allocation": {"received": 100, "strategy": "manual",
			"candidates": [{"invoiceId": "a", "currentBalance": 80}],
			"requested": {"a": 80}},
		"freshBalances": {"a": 50}
	}`
	code, env, _ := execute(t, req, "commit")
	assert.Equal(t, ExitBusinessRule, code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", env.Error.Code)
}

func TestBalanceCommand(t *testing.T) {
	code, env, _ := execute(t, `{"original": 100, "priorPayments": [120]}`, "balance", "--locale", "fr-CA")
	require.Equal(t, ExitOK, code)

	var data struct {
		Balance  json.Number `json:"balance"`
		Overpaid bool        `json:"overpaid"`
		Display  string      `json:"display"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "-20.00", data.Balance.String())
	assert.True(t, data.Overpaid)
	assert.NotEmpty(t, data.Display)
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	code := Execute(context.Background(), []string{"version"}, strings.NewReader(""), &stdout, &bytes.Buffer{})
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout.String(), Version)
}

func TestExecute_SetupErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(),
		[]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "totals"},
		strings.NewReader("{}"), &stdout, &stderr)
	assert.Equal(t, ExitInternal, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "load configuration")

	stderr.Reset()
	code = Execute(context.Background(), []string{"nonsense"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, stderr.String(), "unknown command")
}

func TestStrategiesCommand(t *testing.T) {
	code, env, _ := execute(t, "", "strategies")
	require.Equal(t, ExitOK, code)

	var data []StrategyInfo
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data, 2)
	assert.Equal(t, "fifo", data[0].Name)
	assert.Equal(t, "FIFO", data[0].Type)
	assert.True(t, data[0].Default)
	assert.Equal(t, "manual", data[1].Name)
	assert.False(t, data[1].Default)
}
