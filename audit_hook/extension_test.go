package audithook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/factor/audit_hook"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/plugin"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
	"github.com/xraph/factor/yield"
)

type captured struct {
	events []*audithook.AuditEvent
}

func (c *captured) recorder() audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
		c.events = append(c.events, evt)
		return nil
	})
}

func sampleInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		ID:          id.NewInvoiceID(),
		NFTID:       id.NewNFTID(),
		Creator:     "acme",
		FaceAmount:  types.USDC(500000),
		OfferAmount: types.USDC(475000),
		Deadline:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:      invoice.StatusOpen,
	}
}

func TestInvoiceHooks(t *testing.T) {
	var c captured
	ext := audithook.New(c.recorder())
	ctx := context.Background()
	inv := sampleInvoice()

	require.NoError(t, ext.OnInvoiceCreated(ctx, inv))
	require.NoError(t, ext.OnInvoiceOpened(ctx, inv))
	require.NoError(t, ext.OnInvoiceSettled(ctx, &invoice.Settlement{
		Invoice:   inv,
		Early:     false,
		Cashback:  types.USDC(0),
		AmountDue: inv.FaceAmount,
		YieldPool: types.USDC(25000),
	}))

	require.Len(t, c.events, 3)
	assert.Equal(t, audithook.ActionInvoiceCreated, c.events[0].Action)
	assert.Equal(t, inv.ID.String(), c.events[0].ResourceID)
	assert.Equal(t, "acme", c.events[0].Metadata["creator"])
	assert.Equal(t, audithook.ActionInvoiceOpened, c.events[1].Action)

	settled := c.events[2]
	assert.Equal(t, audithook.ActionInvoiceSettled, settled.Action)
	assert.Equal(t, audithook.SeverityWarning, settled.Severity)
	assert.Equal(t, audithook.CategoryPayment, settled.Category)
	assert.Equal(t, false, settled.Metadata["early"])
}

func TestStakeHooks(t *testing.T) {
	var c captured
	ext := audithook.New(c.recorder())
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tenor, ok := stake.LookupTenor(30)
	require.True(t, ok)
	pos := stake.NewPosition("alice", types.USDC(100000), tenor, now)
	require.NoError(t, ext.OnStakeDeposited(ctx, pos))

	require.NoError(t, ext.OnStakeWithdrawn(ctx, &stake.Withdrawal{
		ID:        id.NewWithdrawalID(),
		Owner:     "alice",
		Requested: types.USDC(100000),
		Penalty:   types.USDC(10000),
		PaidOut:   types.USDC(90000),
		At:        now,
	}))

	require.Len(t, c.events, 2)
	assert.Equal(t, audithook.ActionStakeDeposited, c.events[0].Action)
	assert.Equal(t, 30, c.events[0].Metadata["duration_days"])
	assert.Equal(t, audithook.ActionStakeWithdrawn, c.events[1].Action)
	assert.Equal(t, audithook.SeverityWarning, c.events[1].Severity)
}

func TestYieldDistributedWithoutStakersIsPartial(t *testing.T) {
	var c captured
	ext := audithook.New(c.recorder())

	require.NoError(t, ext.OnYieldDistributed(context.Background(), &yield.Distribution{
		ID:          id.NewYieldID(),
		InvoiceID:   id.NewInvoiceID(),
		Pool:        types.USDC(25000),
		TotalStake:  types.USDC(0),
		Distributed: types.USDC(0),
		Residual:    types.USDC(25000),
	}))

	require.Len(t, c.events, 1)
	assert.Equal(t, audithook.OutcomePartial, c.events[0].Outcome)
	assert.Equal(t, 0, c.events[0].Metadata["recipients"])
}

func TestEnabledActionsFilter(t *testing.T) {
	var c captured
	ext := audithook.New(c.recorder(), audithook.WithEnabledActions(audithook.ActionInvoiceOpened))
	ctx := context.Background()
	inv := sampleInvoice()

	require.NoError(t, ext.OnInvoiceCreated(ctx, inv))
	require.NoError(t, ext.OnInvoiceOpened(ctx, inv))

	require.Len(t, c.events, 1)
	assert.Equal(t, audithook.ActionInvoiceOpened, c.events[0].Action)
}

func TestDisabledActionsFilter(t *testing.T) {
	var c captured
	ext := audithook.New(c.recorder(), audithook.WithDisabledActions(audithook.ActionInvoiceCreated))
	ctx := context.Background()
	inv := sampleInvoice()

	require.NoError(t, ext.OnInvoiceCreated(ctx, inv))
	require.NoError(t, ext.OnInvoiceOpened(ctx, inv))

	require.Len(t, c.events, 1)
	assert.Equal(t, audithook.ActionInvoiceOpened, c.events[0].Action)
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	assert.NoError(t, ext.OnInvoiceOpened(context.Background(), sampleInvoice()))
}

func TestRegistersWithPluginRegistry(t *testing.T) {
	var c captured
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(audithook.New(c.recorder())))

	reg.EmitInvoiceOpened(context.Background(), sampleInvoice())
	require.Len(t, c.events, 1)
	assert.Equal(t, "audit-hook", reg.List()[0].Name())
}
