package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Tax       TaxConfig
	Payment   PaymentConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name   string
	Env    string
	Locale string // BCP 47 tag used for display amounts
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool          // Whether to enable OpenTelemetry
	CollectorEndpoint     string        // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio         float64       // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName           string        // Service name for traces and metrics
	Insecure              bool          // Use insecure (non-TLS) connection (development only)
	MetricsExportInterval time.Duration // How often metrics are pushed to the collector
}

// TaxConfig tunes the totals engine
type TaxConfig struct {
	EmptyCompositePolicy string // reject or fallback
	AllowMixedKinds      bool   // composite and simple codes in one transaction without a warning
}

// PaymentConfig tunes payment allocation
type PaymentConfig struct {
	Currency        string // default transaction currency
	DefaultStrategy string // fifo or manual
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BOOKKEEP_ prefix (e.g., BOOKKEEP_LOG_LEVEL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations; an explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/bookkeep")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BOOKKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// booleans cannot be defaulted by zero-value checks
	v.SetDefault("tax.allow_mixed_kinds", true)

	cfg := &Config{
		App: AppConfig{
			Name:   v.GetString("app.name"),
			Env:    v.GetString("app.env"),
			Locale: v.GetString("app.locale"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
		},
		Tax: TaxConfig{
			EmptyCompositePolicy: strings.ToLower(v.GetString("tax.empty_composite_policy")),
			AllowMixedKinds:      v.GetBool("tax.allow_mixed_kinds"),
		},
		Payment: PaymentConfig{
			Currency:        strings.ToUpper(v.GetString("payment.currency")),
			DefaultStrategy: strings.ToLower(v.GetString("payment.default_strategy")),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bookkeeper"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Locale == "" {
		cfg.App.Locale = "en-CA"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}

	if cfg.Tax.EmptyCompositePolicy == "" {
		cfg.Tax.EmptyCompositePolicy = "reject"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "CAD"
	}
	if cfg.Payment.DefaultStrategy == "" {
		cfg.Payment.DefaultStrategy = "fifo"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.MetricsExportInterval < 0 {
		return fmt.Errorf("telemetry.metrics_export_interval cannot be negative")
	}

	switch c.Tax.EmptyCompositePolicy {
	case "reject", "fallback":
	default:
		return fmt.Errorf("tax.empty_composite_policy must be reject or fallback, got %q", c.Tax.EmptyCompositePolicy)
	}

	if len(c.Payment.Currency) != 3 {
		return fmt.Errorf("payment.currency must be a 3-letter ISO 4217 code, got %q", c.Payment.Currency)
	}
	switch c.Payment.DefaultStrategy {
	case "fifo", "manual":
	default:
		return fmt.Errorf("payment.default_strategy must be fifo or manual, got %q", c.Payment.DefaultStrategy)
	}

	if c.App.Env == "production" && c.Telemetry.Enabled && c.Telemetry.Insecure {
		return fmt.Errorf("telemetry.insecure must be false in production")
	}

	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
