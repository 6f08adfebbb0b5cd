package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
)

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:factor_invoices"`

	ID                      string            `grove:"id,pk"`
	NFTID                   string            `grove:"nft_id"`
	Creator                 string            `grove:"creator"`
	CustomerName            string            `grove:"customer_name"`
	Description             string            `grove:"description"`
	Country                 string            `grove:"country"`
	TaxRatePct              int               `grove:"tax_rate_pct"`
	IsRecurring             bool              `grove:"is_recurring"`
	ESG                     bool              `grove:"esg"`
	Currency                string            `grove:"currency"`
	FaceAmountCents         int64             `grove:"face_amount_cents"`
	OfferAmountCents        int64             `grove:"offer_amount_cents"`
	DiscountRate            string            `grove:"discount_rate"`
	ExpectedReturnCents     int64             `grove:"expected_return_cents"`
	Deadline                time.Time         `grove:"deadline"`
	EarlyPaymentDiscountPct string            `grove:"early_payment_discount_pct"`
	Status                  string            `grove:"status"`
	MintedAt                *time.Time        `grove:"minted_at"`
	PaidAt                  *time.Time        `grove:"paid_at"`
	CashbackCents           *int64            `grove:"cashback_cents"`
	AmountPaidCents         *int64            `grove:"amount_paid_cents"`
	PaymentMethod           string            `grove:"payment_method"`
	Metadata                json.RawMessage   `grove:"metadata"`
	CreatedAt               time.Time         `grove:"created_at"`
	UpdatedAt               time.Time         `grove:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	return &invoiceModel{
		ID:                      inv.ID.String(),
		NFTID:                   inv.NFTID.String(),
		Creator:                 inv.Creator,
		CustomerName:            inv.CustomerName,
		Description:             inv.Description,
		Country:                 inv.Country,
		TaxRatePct:              inv.TaxRatePct,
		IsRecurring:             inv.IsRecurring,
		ESG:                     inv.ESG,
		Currency:                inv.FaceAmount.Currency,
		FaceAmountCents:         inv.FaceAmount.Amount,
		OfferAmountCents:        inv.OfferAmount.Amount,
		DiscountRate:            inv.DiscountRate.String(),
		ExpectedReturnCents:     inv.ExpectedReturn.Amount,
		Deadline:                inv.Deadline,
		EarlyPaymentDiscountPct: inv.EarlyPaymentDiscountPct.String(),
		Status:                  string(inv.Status),
		MintedAt:                inv.MintedAt,
		PaidAt:                  inv.PaidAt,
		CashbackCents:           cents(inv.Cashback),
		AmountPaidCents:         cents(inv.AmountPaid),
		PaymentMethod:           inv.PaymentMethod,
		Metadata:                encodeMetadata(inv.Metadata),
		CreatedAt:               inv.CreatedAt,
		UpdatedAt:               inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	nftID, err := id.ParseNFTID(m.NFTID)
	if err != nil {
		return nil, err
	}
	rate, err := decimal.NewFromString(m.DiscountRate)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: discount rate: %w", m.ID, err)
	}
	earlyPct, err := decimal.NewFromString(m.EarlyPaymentDiscountPct)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: early payment discount: %w", m.ID, err)
	}

	var metadata map[string]string
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("invoice %s: metadata: %w", m.ID, err)
		}
	}

	return &invoice.Invoice{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                      invID,
		NFTID:                   nftID,
		Creator:                 m.Creator,
		CustomerName:            m.CustomerName,
		Description:             m.Description,
		Country:                 m.Country,
		TaxRatePct:              m.TaxRatePct,
		IsRecurring:             m.IsRecurring,
		ESG:                     m.ESG,
		FaceAmount:              types.Money{Amount: m.FaceAmountCents, Currency: m.Currency},
		OfferAmount:             types.Money{Amount: m.OfferAmountCents, Currency: m.Currency},
		DiscountRate:            rate,
		ExpectedReturn:          types.Money{Amount: m.ExpectedReturnCents, Currency: m.Currency},
		Deadline:                m.Deadline,
		EarlyPaymentDiscountPct: earlyPct,
		Status:                  invoice.Status(m.Status),
		MintedAt:                m.MintedAt,
		PaidAt:                  m.PaidAt,
		Cashback:                money(m.CashbackCents, m.Currency),
		AmountPaid:              money(m.AmountPaidCents, m.Currency),
		PaymentMethod:           m.PaymentMethod,
		Metadata:                metadata,
	}, nil
}

// ==================== Stake book models ====================

type stakeBookModel struct {
	grove.BaseModel `grove:"table:factor_stake_books"`

	Owner       string          `grove:"owner,pk"`
	Positions   json.RawMessage `grove:"positions"`
	Withdrawals json.RawMessage `grove:"withdrawals"`
	Version     int64           `grove:"version"`
	UpdatedAt   time.Time       `grove:"updated_at"`
}

func toStakeBookModel(b *stake.Book, version int64) (*stakeBookModel, error) {
	positions, err := json.Marshal(b.Positions)
	if err != nil {
		return nil, err
	}
	withdrawals, err := json.Marshal(b.Withdrawals)
	if err != nil {
		return nil, err
	}
	return &stakeBookModel{
		Owner:       b.Owner,
		Positions:   positions,
		Withdrawals: withdrawals,
		Version:     version,
		UpdatedAt:   b.UpdatedAt,
	}, nil
}

func fromStakeBookModel(m *stakeBookModel) (*stake.Book, error) {
	b := &stake.Book{
		Owner:     m.Owner,
		Version:   m.Version,
		UpdatedAt: m.UpdatedAt,
	}
	if len(m.Positions) > 0 {
		if err := json.Unmarshal(m.Positions, &b.Positions); err != nil {
			return nil, fmt.Errorf("stake book %s: positions: %w", m.Owner, err)
		}
	}
	if len(m.Withdrawals) > 0 {
		if err := json.Unmarshal(m.Withdrawals, &b.Withdrawals); err != nil {
			return nil, fmt.Errorf("stake book %s: withdrawals: %w", m.Owner, err)
		}
	}
	return b, nil
}

func cents(m *types.Money) *int64 {
	if m == nil {
		return nil
	}
	v := m.Amount
	return &v
}

func money(c *int64, currency string) *types.Money {
	if c == nil {
		return nil
	}
	return &types.Money{Amount: *c, Currency: currency}
}

func encodeMetadata(md map[string]string) json.RawMessage {
	if md == nil {
		return json.RawMessage("{}")
	}
	b, _ := json.Marshal(md) //nolint:errcheck // string maps always encode
	return b
}
