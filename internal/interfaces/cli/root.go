// Package cli runs the bookkeeping services over JSON request files.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bookkeep/backend/internal/application/bookkeeping"
	"github.com/bookkeep/backend/internal/infrastructure/config"
	"github.com/bookkeep/backend/internal/infrastructure/logger"
	"github.com/bookkeep/backend/internal/infrastructure/strategy"
	"github.com/bookkeep/backend/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X .../cli.Version=..."
var Version = telemetry.ServiceVersion

const shutdownTimeout = 5 * time.Second

type rootOptions struct {
	configFile string
	locale     string
	verbose    bool
	pretty     bool
}

// app holds everything a command needs once configuration is loaded
type app struct {
	opts      rootOptions
	log       *zap.Logger
	providers *telemetry.Providers
	registry  *strategy.AllocationRegistry
	totals    *bookkeeping.TotalsService
	payments  *bookkeeping.PaymentService
}

// exitError carries the exit code of a command whose envelope was already written
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()

	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitInvalidInput
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "bookkeeper",
		Short: "Tax totals and payment allocation for small-business bookkeeping",
		Long: `bookkeeper reads a JSON request, runs it through the totals engine or the
payment allocator, and writes a JSON envelope to stdout.

Examples:
  bookkeeper totals -f bill.json
  bookkeeper allocate --pretty < payment.json
  bookkeeper balance -f invoice.json --locale fr-CA`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if err := a.setup(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return &exitError{code: ExitInternal, err: err}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.configFile, "config", "c", "", "config file (default: config.toml in ., ./config, /etc/bookkeep)")
	flags.StringVar(&a.opts.locale, "locale", "", "BCP 47 locale for display amounts, overrides app.locale")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "log at debug level")
	flags.BoolVar(&a.opts.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(
		newTotalsCommand(a),
		newValidateCodesCommand(a),
		newAllocateCommand(a),
		newCommitCommand(a),
		newBalanceCommand(a),
		newStrategiesCommand(a),
		newVersionCommand(),
	)
	return root
}

// setup loads configuration and builds the logger, telemetry and services
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.LoadFile(a.opts.configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if a.opts.locale != "" {
		cfg.App.Locale = a.opts.locale
	}
	if a.opts.verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, cfg.Telemetry.MetricsExportInterval, a.log)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	a.providers = providers

	opts, err := bookkeeping.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Logger = a.log
	opts.Metrics = providers.Metrics

	registry, err := strategy.NewRegistryWithDefault(cfg.Payment.DefaultStrategy)
	if err != nil {
		return fmt.Errorf("register allocation strategies: %w", err)
	}

	a.registry = registry
	a.totals = bookkeeping.NewTotalsService(opts)
	a.payments = bookkeeping.NewPaymentService(registry, opts)
	return nil
}

// close flushes telemetry and the logger; safe when setup never ran
func (a *app) close() {
	if a.providers != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.providers.Shutdown(ctx); err != nil {
			a.log.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
