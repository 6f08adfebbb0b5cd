package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/factor"
	audithook "github.com/xraph/factor/audit_hook"
	"github.com/xraph/factor/plugin"
	"github.com/xraph/factor/store"
)

// Option configures the factor Forge extension.
type Option func(*Extension)

// WithStore sets the store for the factor engine. It takes precedence over
// the configured driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB supplies the grove database used by the postgres, sqlite and
// mongo drivers.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithDriver selects the store backend.
func WithDriver(driver string) Option {
	return func(e *Extension) { e.config.Driver = driver }
}

// WithFactorOption passes a factor.Option through to the underlying engine.
func WithFactorOption(opt factor.Option) Option {
	return func(e *Extension) {
		e.factorOpts = append(e.factorOpts, opt)
	}
}

// WithPlugin registers a factor plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.factorOpts = append(e.factorOpts, factor.WithPlugin(p))
	}
}

// WithAuditRecorder registers the audit hook plugin writing to r.
func WithAuditRecorder(r audithook.Recorder, opts ...audithook.Option) Option {
	return func(e *Extension) {
		e.factorOpts = append(e.factorOpts, factor.WithPlugin(audithook.New(r, opts...)))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithPluginTimeout bounds each plugin hook invocation.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithMetrics enables the Prometheus metrics plugin under namespace.
func WithMetrics(namespace string) Option {
	return func(e *Extension) {
		e.config.EnableMetrics = true
		e.config.MetricsNamespace = namespace
	}
}

// WithPricing overrides the pricing policy.
func WithPricing(p PricingConfig) Option {
	return func(e *Extension) { e.config.Pricing = p }
}
