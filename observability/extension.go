// Package observability provides a metrics extension for factor that records
// lifecycle event counts and amounts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/plugin"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
	"github.com/xraph/factor/yield"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCreated   = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceOpened    = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceSettled   = (*MetricsExtension)(nil)
	_ plugin.OnStakeDeposited   = (*MetricsExtension)(nil)
	_ plugin.OnStakeWithdrawn   = (*MetricsExtension)(nil)
	_ plugin.OnYieldDistributed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a factor plugin to track financing and staking activity.
// Amounts are observed in major currency units.
type MetricsExtension struct {
	factory MetricFactory

	// Invoice metrics
	InvoiceCreated      Counter
	InvoiceOpened       Counter
	InvoiceSettled      Counter
	InvoiceSettledEarly Counter
	InvoiceSettledLate  Counter
	InvoiceFaceAmount   Histogram
	InvoiceDiscountRate Histogram
	CashbackPaid        Counter

	// Staking metrics
	StakeDeposited     Counter
	StakeDepositAmount Histogram
	StakeWithdrawn     Counter
	StakeWithdrawnPaid Counter
	WithdrawalPenalty  Counter

	// Yield metrics
	YieldDistributed Counter
	YieldPool        Histogram
	YieldPaid        Counter
	YieldResidual    Counter
	YieldUnclaimed   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory standalone.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Invoice metrics
		InvoiceCreated:      factory.Counter("factor.invoice.created"),
		InvoiceOpened:       factory.Counter("factor.invoice.opened"),
		InvoiceSettled:      factory.Counter("factor.invoice.settled"),
		InvoiceSettledEarly: factory.Counter("factor.invoice.settled.early"),
		InvoiceSettledLate:  factory.Counter("factor.invoice.settled.late"),
		InvoiceFaceAmount:   factory.Histogram("factor.invoice.face_amount"),
		InvoiceDiscountRate: factory.Histogram("factor.invoice.discount_rate"),
		CashbackPaid:        factory.Counter("factor.invoice.cashback"),

		// Staking metrics
		StakeDeposited:     factory.Counter("factor.stake.deposited"),
		StakeDepositAmount: factory.Histogram("factor.stake.deposit_amount"),
		StakeWithdrawn:     factory.Counter("factor.stake.withdrawn"),
		StakeWithdrawnPaid: factory.Counter("factor.stake.withdrawn.paid_out"),
		WithdrawalPenalty:  factory.Counter("factor.stake.withdrawn.penalty"),

		// Yield metrics
		YieldDistributed: factory.Counter("factor.yield.distributed"),
		YieldPool:        factory.Histogram("factor.yield.pool"),
		YieldPaid:        factory.Counter("factor.yield.paid"),
		YieldResidual:    factory.Counter("factor.yield.residual"),
		YieldUnclaimed:   factory.Counter("factor.yield.unclaimed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (m *MetricsExtension) OnInvoiceCreated(_ context.Context, inv *invoice.Invoice) error {
	m.InvoiceCreated.Inc()
	m.InvoiceFaceAmount.Observe(major(inv.FaceAmount))
	m.InvoiceDiscountRate.Observe(inv.DiscountRate.InexactFloat64())
	return nil
}

// OnInvoiceOpened implements plugin.OnInvoiceOpened.
func (m *MetricsExtension) OnInvoiceOpened(_ context.Context, _ *invoice.Invoice) error {
	m.InvoiceOpened.Inc()
	return nil
}

// OnInvoiceSettled implements plugin.OnInvoiceSettled.
func (m *MetricsExtension) OnInvoiceSettled(_ context.Context, s *invoice.Settlement) error {
	m.InvoiceSettled.Inc()
	if s.Early {
		m.InvoiceSettledEarly.Inc()
		m.CashbackPaid.Add(major(s.Cashback))
	} else {
		m.InvoiceSettledLate.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Staking lifecycle hooks
// ──────────────────────────────────────────────────

// OnStakeDeposited implements plugin.OnStakeDeposited.
func (m *MetricsExtension) OnStakeDeposited(_ context.Context, pos *stake.Position) error {
	m.StakeDeposited.Inc()
	m.StakeDepositAmount.Observe(major(pos.Amount))
	return nil
}

// OnStakeWithdrawn implements plugin.OnStakeWithdrawn.
func (m *MetricsExtension) OnStakeWithdrawn(_ context.Context, w *stake.Withdrawal) error {
	m.StakeWithdrawn.Inc()
	m.StakeWithdrawnPaid.Add(major(w.PaidOut))
	m.WithdrawalPenalty.Add(major(w.Penalty))
	return nil
}

// ──────────────────────────────────────────────────
// Yield hooks
// ──────────────────────────────────────────────────

// OnYieldDistributed implements plugin.OnYieldDistributed. A pool with no
// stakers is counted as unclaimed.
func (m *MetricsExtension) OnYieldDistributed(_ context.Context, d *yield.Distribution) error {
	m.YieldDistributed.Inc()
	m.YieldPool.Observe(major(d.Pool))
	m.YieldPaid.Add(major(d.Distributed))
	if len(d.Shares) == 0 {
		m.YieldUnclaimed.Add(major(d.Pool))
		return nil
	}
	m.YieldResidual.Add(major(d.Residual))
	return nil
}

func major(v types.Money) float64 {
	return v.Decimal().InexactFloat64()
}
