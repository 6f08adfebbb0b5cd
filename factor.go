package factor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/factor/clock"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/plugin"
	"github.com/xraph/factor/pricing"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/store"
	"github.com/xraph/factor/types"
	"github.com/xraph/factor/yield"
)

// Engine is the invoice financing engine. It wires the invoice ledger, the
// stake pool and the yield distributor to one store and delivers lifecycle
// events to plugins after each change commits.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   clock.Clock
	policy  pricing.Policy

	skipMigrate bool

	pricing     *pricing.Engine
	invoices    *InvoiceLedger
	stakes      *StakePool
	distributor *yield.Distributor
}

// New creates a new Engine backed by s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		clock:       clock.System(),
		policy:      pricing.DefaultPolicy(),
		distributor: yield.NewDistributor(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.pricing = pricing.NewEngine(e.policy)
	e.invoices = NewInvoiceLedger(store.Invoices(s), e.pricing)
	e.stakes = NewStakePool(store.Stakes(s))

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPricingPolicy replaces the default pricing constants.
func WithPricingPolicy(p pricing.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithoutMigrate makes Start leave the schema alone. Plugins are still
// initialized.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if !e.skipMigrate {
		if err := e.Migrate(ctx); err != nil {
			return err
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("factor started",
		"base_rate", e.policy.BaseRate.String(),
		"max_rate", e.policy.MaxRate.String(),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Migrate brings the store schema up to date.
func (e *Engine) Migrate(ctx context.Context) error {
	return e.store.Migrate(ctx)
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())

	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Clock returns the engine's clock.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Invoices returns the invoice ledger.
func (e *Engine) Invoices() *InvoiceLedger { return e.invoices }

// Stakes returns the stake pool.
func (e *Engine) Stakes() *StakePool { return e.stakes }

// ──────────────────────────────────────────────────
// Pricing
// ──────────────────────────────────────────────────

// Quote prices face for deadline without creating anything.
func (e *Engine) Quote(face types.Money, deadline time.Time) (pricing.Quote, error) {
	return e.pricing.Quote(face, deadline, e.clock.Now())
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

// CreateInvoice prices d and stores it as pending.
func (e *Engine) CreateInvoice(ctx context.Context, d invoice.Draft) (*invoice.Invoice, error) {
	inv, err := e.invoices.Create(ctx, d, e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("invoice created",
		"invoice_id", inv.ID.String(),
		"face", inv.FaceAmount.String(),
		"offer", inv.OfferAmount.String(),
	)
	e.plugins.EmitInvoiceCreated(ctx, inv)

	return inv, nil
}

// ConfirmMinted opens a pending invoice. It is driven by the minting
// collaborator and may arrive at any time after creation, or never.
func (e *Engine) ConfirmMinted(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	inv, err := e.invoices.ConfirmMinted(ctx, invID, e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("invoice opened", "invoice_id", inv.ID.String())
	e.plugins.EmitInvoiceOpened(ctx, inv)

	return inv, nil
}

// SettleInvoice settles an open invoice and distributes its yield pool
// across the active stake at this instant.
func (e *Engine) SettleInvoice(ctx context.Context, invID id.InvoiceID, method string) (*invoice.Settlement, *yield.Distribution, error) {
	return e.SettleInvoiceWithPayment(ctx, invID, invoice.Payment{Method: method})
}

// SettleInvoiceWithPayment is SettleInvoice with a tendered amount check.
// The settlement is returned whenever the invoice was settled. If only the
// distribution that follows fails, the error wraps ErrDistributionFailed and
// DistributeYield can finish the job.
func (e *Engine) SettleInvoiceWithPayment(ctx context.Context, invID id.InvoiceID, p invoice.Payment) (*invoice.Settlement, *yield.Distribution, error) {
	now := e.clock.Now()

	s, err := e.invoices.SettleWithPayment(ctx, invID, now, p)
	if err != nil {
		return nil, nil, err
	}

	e.logger.Debug("invoice settled",
		"invoice_id", invID.String(),
		"early", s.Early,
		"cashback", s.Cashback.String(),
	)
	e.plugins.EmitInvoiceSettled(ctx, s)

	dist, err := e.distribute(ctx, invID, s.YieldPool, now)
	if err != nil {
		return s, nil, err
	}
	return s, dist, nil
}

// DistributeYield splits a settled invoice's yield pool across the current
// stake. It completes a settlement whose distribution failed with
// ErrDistributionFailed; the caller decides whether a pool was already paid.
func (e *Engine) DistributeYield(ctx context.Context, invID id.InvoiceID) (*yield.Distribution, error) {
	inv, err := e.invoices.Get(ctx, invID)
	if err != nil {
		return nil, err
	}
	if inv.Status != invoice.StatusDone {
		return nil, fmt.Errorf("%w: invoice %s is %s, not done", ErrInvalidTransition, invID, inv.Status)
	}
	return e.distribute(ctx, invID, inv.ExpectedReturn, e.clock.Now())
}

func (e *Engine) distribute(ctx context.Context, invID id.InvoiceID, pool types.Money, now time.Time) (*yield.Distribution, error) {
	snapshot, err := e.stakes.Snapshot(ctx)
	if err != nil {
		e.logger.Error("yield distribution failed",
			"invoice_id", invID.String(),
			"pool", pool.String(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: invoice %s: %w", ErrDistributionFailed, invID, err)
	}

	dist := e.distributor.Distribute(invID, pool, snapshot, now)
	e.plugins.EmitYieldDistributed(ctx, dist)

	return dist, nil
}

// PreviewDistribution splits the invoice's expected return across the
// current stake without settling anything.
func (e *Engine) PreviewDistribution(ctx context.Context, invID id.InvoiceID) (*yield.Distribution, error) {
	inv, err := e.invoices.Get(ctx, invID)
	if err != nil {
		return nil, err
	}

	snapshot, err := e.stakes.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return e.distributor.Distribute(inv.ID, inv.ExpectedReturn, snapshot, e.clock.Now()), nil
}

// GetInvoice returns an invoice by id.
func (e *Engine) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return e.invoices.Get(ctx, invID)
}

// ListInvoices returns invoices matching opts.
func (e *Engine) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return e.invoices.List(ctx, opts)
}

// CountInvoicesByStatus tallies owner's invoices per status.
func (e *Engine) CountInvoicesByStatus(ctx context.Context, owner string) (map[invoice.Status]int, error) {
	return e.invoices.CountByStatus(ctx, owner)
}

// ListPayableInvoices returns open invoices still before their deadline.
func (e *Engine) ListPayableInvoices(ctx context.Context) ([]*invoice.Invoice, error) {
	return e.invoices.ListPayable(ctx, e.clock.Now())
}

// ──────────────────────────────────────────────────
// Staking
// ──────────────────────────────────────────────────

// Tenors returns the supported staking durations.
func (e *Engine) Tenors() []stake.Tenor { return stake.Tenors() }

// Deposit opens a stake position for owner.
func (e *Engine) Deposit(ctx context.Context, owner string, amount types.Money, durationDays int) (*stake.Position, error) {
	pos, err := e.stakes.Deposit(ctx, owner, amount, durationDays, e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("stake deposited",
		"owner", owner,
		"position_id", pos.ID.String(),
		"amount", pos.Amount.String(),
		"duration_days", pos.DurationDays,
	)
	e.plugins.EmitStakeDeposited(ctx, pos)

	return pos, nil
}

// Withdraw takes amount out of owner's stake.
func (e *Engine) Withdraw(ctx context.Context, owner string, amount types.Money) (*stake.Withdrawal, error) {
	w, err := e.stakes.Withdraw(ctx, owner, amount, e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.logger.Debug("stake withdrawn",
		"owner", owner,
		"withdrawal_id", w.ID.String(),
		"paid_out", w.PaidOut.String(),
		"penalty", w.Penalty.String(),
	)
	e.plugins.EmitStakeWithdrawn(ctx, w)

	return w, nil
}

// PreviewWithdrawal reports what Withdraw would pay out now.
func (e *Engine) PreviewWithdrawal(ctx context.Context, owner string, amount types.Money) (*stake.Withdrawal, error) {
	return e.stakes.PreviewWithdrawal(ctx, owner, amount, e.clock.Now())
}

// StakeBalance summarizes owner's stake now.
func (e *Engine) StakeBalance(ctx context.Context, owner string) (*Balance, error) {
	return e.stakes.Balance(ctx, owner, e.clock.Now())
}

// ProjectedStakeYield returns what amount would earn over a full tenor.
func (e *Engine) ProjectedStakeYield(amount types.Money, durationDays int) (types.Money, error) {
	return e.stakes.ProjectedYield(amount, durationDays)
}

// ProjectedIncome estimates owner's income from an invoice of face given
// the current stake distribution.
func (e *Engine) ProjectedIncome(ctx context.Context, owner string, face types.Money) (types.Money, error) {
	snapshot, err := e.stakes.Snapshot(ctx)
	if err != nil {
		return types.Money{}, err
	}

	own := types.Zero(types.DefaultCurrency)
	total := types.Zero(types.DefaultCurrency)
	for _, pos := range snapshot {
		total = total.Add(pos.Amount)
		if pos.Owner == owner {
			own = own.Add(pos.Amount)
		}
	}

	return yield.Projected(face, own, total), nil
}
