// Package extension provides the Forge extension adapter for factor.
//
// It implements the forge.Extension interface to integrate the factor
// engine into a Forge application with store selection, DI registration,
// and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.factor" or "factor" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/factor"
	"github.com/xraph/factor/observability"
	"github.com/xraph/factor/store"
	"github.com/xraph/factor/store/memory"
	"github.com/xraph/factor/store/mongo"
	"github.com/xraph/factor/store/postgres"
	"github.com/xraph/factor/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "factor"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Invoice factoring and staking yield engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the factor engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *factor.Engine
	store      store.Store
	groveDB    *grove.DB
	factorOpts []factor.Option
}

// New creates a new factor Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying factor engine.
// This is nil until Register is called.
func (e *Extension) Engine() *factor.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the factor engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (store.Store, error) {
		return e.store, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*factor.Engine, error) {
		return e.engine, nil
	})
}

// build resolves the store and constructs the engine from e.config.
func (e *Extension) build() error {
	if e.store == nil {
		s, err := newStore(e.config.Driver, e.groveDB)
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildFactorOpts()
	if err != nil {
		return err
	}
	e.engine = factor.New(e.store, opts...)
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("factor: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("factor: store not initialized")
	}
	return e.store.Ping(ctx)
}

// newStore constructs the backend named by driver.
func newStore(driver string, db *grove.DB) (store.Store, error) {
	if driver == "" || driver == DriverMemory {
		return memory.New(), nil
	}
	if db == nil {
		return nil, fmt.Errorf("factor: driver %q requires a grove database (use WithGroveDB)", driver)
	}
	switch driver {
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverSQLite:
		return sqlite.New(db), nil
	case DriverMongo:
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("factor: unknown store driver %q", driver)
	}
}

// buildFactorOpts constructs factor.Option values from the resolved config.
func (e *Extension) buildFactorOpts() ([]factor.Option, error) {
	opts := make([]factor.Option, 0, len(e.factorOpts)+4)

	if e.config.DisableMigrate {
		opts = append(opts, factor.WithoutMigrate())
	}

	if e.config.PluginTimeout > 0 {
		opts = append(opts, factor.WithPluginTimeout(e.config.PluginTimeout))
	}

	if !e.config.Pricing.IsZero() {
		policy, err := e.config.Pricing.Policy()
		if err != nil {
			return nil, err
		}
		opts = append(opts, factor.WithPricingPolicy(policy))
	}

	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(nil,
			observability.WithNamespace(e.config.MetricsNamespace))
		opts = append(opts, factor.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through factor options.
	opts = append(opts, e.factorOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("factor: configuration is required but not found in config files; " +
				"ensure 'extensions.factor' or 'factor' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("factor: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("driver", e.config.Driver),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("enable_metrics", e.config.EnableMetrics),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.factor" first (namespaced pattern).
	if cm.IsSet("extensions.factor") {
		if err := cm.Bind("extensions.factor", &cfg); err == nil {
			e.Logger().Debug("factor: loaded config from file",
				forge.F("key", "extensions.factor"),
			)
			return cfg, true
		}
		e.Logger().Warn("factor: failed to bind extensions.factor config",
			forge.F("error", "bind failed"),
		)
	}

	// Try short "factor" key.
	if cm.IsSet("factor") {
		if err := cm.Bind("factor", &cfg); err == nil {
			e.Logger().Debug("factor: loaded config from file",
				forge.F("key", "factor"),
			)
			return cfg, true
		}
		e.Logger().Warn("factor: failed to bind factor config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.MetricsNamespace == "" {
		yamlConfig.MetricsNamespace = programmaticConfig.MetricsNamespace
	}
	if yamlConfig.Pricing.IsZero() {
		yamlConfig.Pricing = programmaticConfig.Pricing
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
