package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/bookkeep/backend/internal/application/bookkeeping"
	"github.com/bookkeep/backend/internal/domain/shared"
	"github.com/bookkeep/backend/internal/domain/tax"
	"github.com/bookkeep/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const fileFlagUsage = "request JSON file, - reads stdin"

// ValidateCodesRequest is the input of validate-codes
type ValidateCodesRequest struct {
	TaxCodes []bookkeeping.TaxCodeDTO `json:"taxCodes"`
}

// ValidateCodesResponse lists configuration problems in a tax code set
type ValidateCodesResponse struct {
	Valid  bool        `json:"valid"`
	Issues []tax.Issue `json:"issues"`
}

func newTotalsCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Compute line tax, tax buckets and transaction totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req bookkeeping.TotalsRequest
			return a.run(cmd, "totals", file, &req, func(ctx context.Context) (any, error) {
				return a.totals.Compute(ctx, req)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", fileFlagUsage)
	return cmd
}

func newValidateCodesCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate-codes",
		Short: "Report duplicate, orphaned or empty tax codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req ValidateCodesRequest
			return a.run(cmd, "validate-codes", file, &req, func(ctx context.Context) (any, error) {
				issues, err := a.totals.ValidateTaxCodes(ctx, req.TaxCodes)
				if err != nil {
					return nil, err
				}
				return ValidateCodesResponse{Valid: len(issues) == 0, Issues: issues}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", fileFlagUsage)
	return cmd
}

func newAllocateCommand(a *app) *cobra.Command {
	var (
		file         string
		strategyName string
	)
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Distribute a received payment across open invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req bookkeeping.AllocateRequest
			return a.run(cmd, "allocate", file, &req, func(ctx context.Context) (any, error) {
				if strategyName != "" {
					req.Strategy = strategyName
				}
				return a.payments.Allocate(ctx, req)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", fileFlagUsage)
	cmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "allocation strategy (fifo, manual), overrides the request")
	return cmd
}

func newCommitCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Plan the invoice balance changes for an allocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req bookkeeping.CommitRequest
			return a.run(cmd, "commit", file, &req, func(ctx context.Context) (any, error) {
				return a.payments.PlanCommit(ctx, req)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", fileFlagUsage)
	return cmd
}

func newBalanceCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Reconcile an invoice balance against prior payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req bookkeeping.BalanceRequest
			return a.run(cmd, "balance", file, &req, func(ctx context.Context) (any, error) {
				return a.payments.InvoiceBalance(ctx, req)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", fileFlagUsage)
	return cmd
}

// StrategyInfo describes one registered allocation strategy
type StrategyInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

func newStrategiesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the payment allocation strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos := make([]StrategyInfo, 0, len(a.registry.Names()))
			for _, name := range a.registry.Names() {
				s, err := a.registry.GetAllocationStrategy(name)
				if err != nil {
					return a.fail(cmd, "", err)
				}
				infos = append(infos, StrategyInfo{
					Name:        s.Name(),
					Type:        s.StrategyType().String(),
					Description: s.Description(),
					Default:     name == a.registry.Default(),
				})
			}
			return a.write(cmd, NewSuccessResponse("", infos))
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bookkeeper %s (%s)\n", Version, runtime.Version())
		},
	}
}

// run decodes the request into req, calls the service and writes the envelope.
// A failed call still writes an envelope and returns an exitError.
func (a *app) run(cmd *cobra.Command, name, file string, req any, call func(ctx context.Context) (any, error)) error {
	requestID := uuid.NewString()
	ctx, log := logger.WithRequestID(cmd.Context(), a.log, requestID)
	log = log.With(zap.String("command", name))

	if err := decodeRequest(cmd.InOrStdin(), file, req); err != nil {
		log.Warn("unreadable request", zap.String("file", file), zap.Error(err))
		return a.fail(cmd, requestID, err)
	}

	data, err := call(ctx)
	if err != nil {
		return a.fail(cmd, requestID, err)
	}
	log.Info("command completed")
	return a.write(cmd, NewSuccessResponse(requestID, data))
}

func (a *app) fail(cmd *cobra.Command, requestID string, err error) error {
	resp := NewErrorResponse(requestID, err)
	if werr := a.write(cmd, resp); werr != nil {
		return werr
	}
	return &exitError{code: ExitCode(resp.Error.Code), err: err}
}

func (a *app) write(cmd *cobra.Command, resp Response) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if a.opts.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		return &exitError{code: ExitInternal, err: fmt.Errorf("write response: %w", err)}
	}
	return nil
}

// decodeRequest reads one JSON document from file, or from stdin when file is "-"
func decodeRequest(stdin io.Reader, file string, req any) error {
	r := stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "malformed request JSON: "+err.Error())
	}
	return nil
}
