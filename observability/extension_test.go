package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
	"github.com/xraph/factor/yield"
)

func TestMetricName(t *testing.T) {
	assert.Equal(t, "factor_invoice_face_amount", metricName("factor.invoice.face_amount"))
	assert.Equal(t, "factor_plugin_errors", metricName("factor.plugin-errors"))
}

func TestPrometheusFactoryReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg)

	a := f.Counter("factor.invoice.created")
	b := f.Counter("factor.invoice.created")
	a.Inc()
	b.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.(prometheus.Counter)))

	// A second factory over the same registry picks up the existing collector.
	g := NewPrometheusFactory(reg)
	g.Counter("factor.invoice.created").Inc()
	assert.Equal(t, 3.0, testutil.ToFloat64(a.(prometheus.Counter)))
}

func TestMetricsExtensionRecordsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsExtension(NewPrometheusFactory(reg, WithNamespace("test")))
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	inv := &invoice.Invoice{
		ID:           id.NewInvoiceID(),
		FaceAmount:   types.USDC(500000),
		DiscountRate: decimal.RequireFromString("0.05"),
	}
	require.NoError(t, m.OnInvoiceCreated(ctx, inv))
	require.NoError(t, m.OnInvoiceOpened(ctx, inv))
	require.NoError(t, m.OnInvoiceSettled(ctx, &invoice.Settlement{
		Invoice:  inv,
		Early:    true,
		Cashback: types.USDC(15000),
	}))

	tenor, ok := stake.LookupTenor(90)
	require.True(t, ok)
	require.NoError(t, m.OnStakeDeposited(ctx, stake.NewPosition("alice", types.USDC(100000), tenor, now)))
	require.NoError(t, m.OnStakeWithdrawn(ctx, &stake.Withdrawal{
		Requested: types.USDC(100000),
		Penalty:   types.USDC(10000),
		PaidOut:   types.USDC(90000),
	}))

	require.NoError(t, m.OnYieldDistributed(ctx, &yield.Distribution{
		Pool:        types.USDC(25000),
		Distributed: types.USDC(24999),
		Residual:    types.USDC(1),
		Shares:      []yield.Share{{Owner: "alice"}},
	}))
	require.NoError(t, m.OnYieldDistributed(ctx, &yield.Distribution{
		Pool: types.USDC(1000),
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoiceCreated.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoiceSettledEarly.(prometheus.Counter)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InvoiceSettledLate.(prometheus.Counter)))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.CashbackPaid.(prometheus.Counter)))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.WithdrawalPenalty.(prometheus.Counter)))
	assert.Equal(t, 900.0, testutil.ToFloat64(m.StakeWithdrawnPaid.(prometheus.Counter)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.YieldDistributed.(prometheus.Counter)))
	assert.InDelta(t, 0.01, testutil.ToFloat64(m.YieldResidual.(prometheus.Counter)), 1e-9)
	assert.Equal(t, 10.0, testutil.ToFloat64(m.YieldUnclaimed.(prometheus.Counter)))

	n, err := testutil.GatherAndCount(reg, "test_factor_invoice_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
