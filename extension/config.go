package extension

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/factor/pricing"
)

// Store drivers understood by the extension.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the factor extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.factor" or "factor" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend: memory, postgres, sqlite or mongo
	// (default: memory). Non-memory drivers need a grove.DB supplied with
	// WithGroveDB.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// PluginTimeout bounds each plugin hook invocation (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// EnableMetrics registers the Prometheus-backed metrics plugin.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `json:"metrics_namespace" mapstructure:"metrics_namespace" yaml:"metrics_namespace"`

	// Pricing overrides the discount pricing policy.
	Pricing PricingConfig `json:"pricing" mapstructure:"pricing" yaml:"pricing"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// PricingConfig is the textual form of a pricing.Policy. Rates are decimal
// strings such as "0.02"; blank fields keep the default policy value.
type PricingConfig struct {
	BaseRate    string `json:"base_rate" mapstructure:"base_rate" yaml:"base_rate"`
	DailyRate   string `json:"daily_rate" mapstructure:"daily_rate" yaml:"daily_rate"`
	MaxRate     string `json:"max_rate" mapstructure:"max_rate" yaml:"max_rate"`
	YieldPerDay string `json:"yield_per_day" mapstructure:"yield_per_day" yaml:"yield_per_day"`
}

// IsZero reports whether no rate is set.
func (c PricingConfig) IsZero() bool {
	return c == PricingConfig{}
}

// Policy parses c over pricing.DefaultPolicy and validates the result.
func (c PricingConfig) Policy() (pricing.Policy, error) {
	p := pricing.DefaultPolicy()
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"base_rate", c.BaseRate, &p.BaseRate},
		{"daily_rate", c.DailyRate, &p.DailyRate},
		{"max_rate", c.MaxRate, &p.MaxRate},
		{"yield_per_day", c.YieldPerDay, &p.YieldPerDay},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return pricing.Policy{}, fmt.Errorf("factor: pricing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}
	if err := p.Validate(); err != nil {
		return pricing.Policy{}, err
	}
	return p, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:        DriverMemory,
		PluginTimeout: 5 * time.Second,
	}
}
