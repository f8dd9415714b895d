// Package bookkeeping exposes the totals engine and payment allocation as
// request/response services for callers that speak JSON.
package bookkeeping

import (
	"fmt"
	"strings"

	"github.com/bookkeep/backend/internal/domain/shared/valueobject"
	"github.com/bookkeep/backend/internal/domain/tax"
	"github.com/bookkeep/backend/internal/infrastructure/config"
	"github.com/bookkeep/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Options carries the settings shared by the bookkeeping services
type Options struct {
	Currency        valueobject.Currency // used when a request names none
	Locale          language.Tag         // display strings
	Calc            tax.CalcOptions
	AllowMixedKinds bool
	DefaultStrategy string
	Logger          *zap.Logger
	Metrics         *telemetry.BookkeepingMetrics
}

// DefaultOptions returns CAD, en-CA and the reject policy
func DefaultOptions() Options {
	return Options{
		Currency:        valueobject.DefaultCurrency,
		Locale:          language.MustParse("en-CA"),
		Calc:            tax.DefaultCalcOptions(),
		AllowMixedKinds: true,
		DefaultStrategy: "fifo",
	}
}

// OptionsFromConfig maps loaded configuration onto service options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}

	if cfg.App.Locale != "" {
		tag, err := language.Parse(cfg.App.Locale)
		if err != nil {
			return Options{}, fmt.Errorf("app.locale %q: %w", cfg.App.Locale, err)
		}
		opts.Locale = tag
	}
	if cfg.Payment.Currency != "" {
		opts.Currency = valueobject.Currency(cfg.Payment.Currency)
	}
	if cfg.Payment.DefaultStrategy != "" {
		opts.DefaultStrategy = cfg.Payment.DefaultStrategy
	}
	if cfg.Tax.EmptyCompositePolicy != "" {
		opts.Calc.EmptyComposite = tax.EmptyCompositePolicy(cfg.Tax.EmptyCompositePolicy)
	}
	opts.AllowMixedKinds = cfg.Tax.AllowMixedKinds
	return opts, nil
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) currencyOr(requested string) valueobject.Currency {
	if requested != "" {
		return valueobject.Currency(strings.ToUpper(requested))
	}
	return o.Currency
}
