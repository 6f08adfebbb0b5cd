package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/yield"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so that emitting an event only touches the
// plugins that implement it.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onInvoiceCreated   []OnInvoiceCreated
	onInvoiceOpened    []OnInvoiceOpened
	onInvoiceSettled   []OnInvoiceSettled
	onStakeDeposited   []OnStakeDeposited
	onStakeWithdrawn   []OnStakeWithdrawn
	onYieldDistributed []OnYieldDistributed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets how long a single plugin call may run.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnInvoiceCreated); ok {
		r.onInvoiceCreated = append(r.onInvoiceCreated, v)
	}
	if v, ok := p.(OnInvoiceOpened); ok {
		r.onInvoiceOpened = append(r.onInvoiceOpened, v)
	}
	if v, ok := p.(OnInvoiceSettled); ok {
		r.onInvoiceSettled = append(r.onInvoiceSettled, v)
	}
	if v, ok := p.(OnStakeDeposited); ok {
		r.onStakeDeposited = append(r.onStakeDeposited, v)
	}
	if v, ok := p.(OnStakeWithdrawn); ok {
		r.onStakeWithdrawn = append(r.onStakeWithdrawn, v)
	}
	if v, ok := p.(OnYieldDistributed); ok {
		r.onYieldDistributed = append(r.onYieldDistributed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces returns the hook names p implements.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnInvoiceCreated)(nil)).Elem(), "OnInvoiceCreated")
	checkInterface(reflect.TypeOf((*OnInvoiceOpened)(nil)).Elem(), "OnInvoiceOpened")
	checkInterface(reflect.TypeOf((*OnInvoiceSettled)(nil)).Elem(), "OnInvoiceSettled")
	checkInterface(reflect.TypeOf((*OnStakeDeposited)(nil)).Elem(), "OnStakeDeposited")
	checkInterface(reflect.TypeOf((*OnStakeWithdrawn)(nil)).Elem(), "OnStakeWithdrawn")
	checkInterface(reflect.TypeOf((*OnYieldDistributed)(nil)).Elem(), "OnYieldDistributed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", plugins, func(p OnInit) error {
		return p.OnInit(ctx, engine)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitInvoiceCreated emits an invoice created event.
func (r *Registry) EmitInvoiceCreated(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceCreated
	r.mu.RUnlock()

	emitCopy(ctx, r, "OnInvoiceCreated", plugins, inv, (*invoice.Invoice).Clone, func(p OnInvoiceCreated, ev *invoice.Invoice) error {
		return p.OnInvoiceCreated(ctx, ev)
	})
}

// EmitInvoiceOpened emits an invoice opened event.
func (r *Registry) EmitInvoiceOpened(ctx context.Context, inv *invoice.Invoice) {
	r.mu.RLock()
	plugins := r.onInvoiceOpened
	r.mu.RUnlock()

	emitCopy(ctx, r, "OnInvoiceOpened", plugins, inv, (*invoice.Invoice).Clone, func(p OnInvoiceOpened, ev *invoice.Invoice) error {
		return p.OnInvoiceOpened(ctx, ev)
	})
}

// EmitInvoiceSettled emits an invoice settled event.
func (r *Registry) EmitInvoiceSettled(ctx context.Context, s *invoice.Settlement) {
	r.mu.RLock()
	plugins := r.onInvoiceSettled
	r.mu.RUnlock()

	emitCopy(ctx, r, "OnInvoiceSettled", plugins, s, (*invoice.Settlement).Clone, func(p OnInvoiceSettled, ev *invoice.Settlement) error {
		return p.OnInvoiceSettled(ctx, ev)
	})
}

// EmitStakeDeposited emits a stake deposited event.
func (r *Registry) EmitStakeDeposited(ctx context.Context, pos *stake.Position) {
	r.mu.RLock()
	plugins := r.onStakeDeposited
	r.mu.RUnlock()

	emitCopy(ctx, r, "OnStakeDeposited", plugins, pos, (*stake.Position).Clone, func(p OnStakeDeposited, ev *stake.Position) error {
		return p.OnStakeDeposited(ctx, ev)
	})
}

// EmitStakeWithdrawn emits a stake withdrawn event.
func (r *Registry) EmitStakeWithdrawn(ctx context.Context, w *stake.Withdrawal) {
	r.mu.RLock()
	plugins := r.onStakeWithdrawn
	r.mu.RUnlock()

	emitCopy(ctx, r, "OnStakeWithdrawn", plugins, w, (*stake.Withdrawal).Clone, func(p OnStakeWithdrawn, ev *stake.Withdrawal) error {
		return p.OnStakeWithdrawn(ctx, ev)
	})
}

// EmitYieldDistributed emits a yield distributed event.
func (r *Registry) EmitYieldDistributed(ctx context.Context, d *yield.Distribution) {
	r.mu.RLock()
	plugins := r.onYieldDistributed
	r.mu.RUnlock()

	emitCopy(ctx, r, "OnYieldDistributed", plugins, d, (*yield.Distribution).Clone, func(p OnYieldDistributed, ev *yield.Distribution) error {
		return p.OnYieldDistributed(ctx, ev)
	})
}

// emit calls fn for every plugin in order. Failures are logged and never
// returned: a plugin must not fail the operation that produced the event.
func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		r.invoke(ctx, hook, p.Name(), func() error { return fn(p) })
	}
}

// emitCopy is emit for hooks carrying an event. Each plugin receives its own
// copy, taken before the call starts, so a plugin can neither alter what the
// caller holds nor race with it after a timeout.
func emitCopy[T Plugin, E any](ctx context.Context, r *Registry, hook string, plugins []T, event E, clone func(E) E, fn func(T, E) error) {
	for _, p := range plugins {
		ev := clone(event)
		r.invoke(ctx, hook, p.Name(), func() error { return fn(p, ev) })
	}
}

func (r *Registry) invoke(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
