package postgres

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestInvoiceModelKeepsSettlementFields(t *testing.T) {
	paid := t0.Add(10 * 24 * time.Hour)
	cashback := types.USDC(15000)
	inv := &invoice.Invoice{
		Entity:                  types.NewEntityAt(t0),
		ID:                      id.NewInvoiceID(),
		NFTID:                   id.NewNFTID(),
		Creator:                 "acme",
		FaceAmount:              types.USDC(500000),
		OfferAmount:             types.USDC(475000),
		DiscountRate:            decimal.RequireFromString("0.05"),
		ExpectedReturn:          types.USDC(15000),
		Deadline:                t0.Add(30 * 24 * time.Hour),
		EarlyPaymentDiscountPct: decimal.NewFromInt(2),
		Status:                  invoice.StatusDone,
		PaidAt:                  &paid,
		Cashback:                &cashback,
		Metadata:                map[string]string{"po": "42"},
	}

	got, err := fromInvoiceModel(toInvoiceModel(inv))
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, inv.NFTID, got.NFTID)
	assert.True(t, inv.DiscountRate.Equal(got.DiscountRate))
	assert.True(t, inv.EarlyPaymentDiscountPct.Equal(got.EarlyPaymentDiscountPct))
	require.NotNil(t, got.Cashback)
	assert.Equal(t, cashback, *got.Cashback)
	assert.Nil(t, got.AmountPaid)
	assert.Nil(t, got.MintedAt)
	assert.Equal(t, "42", got.Metadata["po"])
}

func TestStakeBookModelEncodesPositions(t *testing.T) {
	tenor, ok := stake.LookupTenor(60)
	require.True(t, ok)
	book := stake.NewBook("alice")
	book.Positions = append(book.Positions, stake.NewPosition("alice", types.USDC(100000), tenor, t0))
	book.UpdatedAt = t0

	m, err := toStakeBookModel(book, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Version)

	got, err := fromStakeBookModel(m)
	require.NoError(t, err)
	require.Len(t, got.Positions, 1)
	assert.Equal(t, book.Positions[0].ID, got.Positions[0].ID)
	assert.Equal(t, int64(1100), got.Positions[0].APRBasisPoints)
	assert.True(t, book.Positions[0].MaturityAt.Equal(got.Positions[0].MaturityAt))
	assert.Equal(t, int64(3), got.Version)
}

func TestFromInvoiceModelRejectsBadRate(t *testing.T) {
	m := toInvoiceModel(&invoice.Invoice{ID: id.NewInvoiceID(), NFTID: id.NewNFTID()})
	m.DiscountRate = "five percent"
	_, err := fromInvoiceModel(m)
	assert.ErrorContains(t, err, "discount rate")
}
