package mongo

import (
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

	ID                      string            `grove:"id,pk"                      bson:"_id"`
	NFTID                   string            `grove:"nft_id"                     bson:"nft_id"`
	Creator                 string            `grove:"creator"                    bson:"creator"`
	CustomerName            string            `grove:"customer_name"              bson:"customer_name,omitempty"`
	Description             string            `grove:"description"                bson:"description,omitempty"`
	Country                 string            `grove:"country"                    bson:"country,omitempty"`
	TaxRatePct              int               `grove:"tax_rate_pct"               bson:"tax_rate_pct"`
	IsRecurring             bool              `grove:"is_recurring"               bson:"is_recurring"`
	ESG                     bool              `grove:"esg"                        bson:"esg"`
	Currency                string            `grove:"currency"                   bson:"currency"`
	FaceAmountCents         int64             `grove:"face_amount_cents"          bson:"face_amount_cents"`
	OfferAmountCents        int64             `grove:"offer_amount_cents"         bson:"offer_amount_cents"`
	DiscountRate            string            `grove:"discount_rate"              bson:"discount_rate"`
	ExpectedReturnCents     int64             `grove:"expected_return_cents"      bson:"expected_return_cents"`
	Deadline                time.Time         `grove:"deadline"                   bson:"deadline"`
	EarlyPaymentDiscountPct string            `grove:"early_payment_discount_pct" bson:"early_payment_discount_pct"`
	Status                  string            `grove:"status"                     bson:"status"`
	MintedAt                *time.Time        `grove:"minted_at"                  bson:"minted_at,omitempty"`
	PaidAt                  *time.Time        `grove:"paid_at"                    bson:"paid_at,omitempty"`
	CashbackCents           *int64            `grove:"cashback_cents"             bson:"cashback_cents,omitempty"`
	AmountPaidCents         *int64            `grove:"amount_paid_cents"          bson:"amount_paid_cents,omitempty"`
	PaymentMethod           string            `grove:"payment_method"             bson:"payment_method,omitempty"`
	Metadata                map[string]string `grove:"metadata"                   bson:"metadata,omitempty"`
	CreatedAt               time.Time         `grove:"created_at"                 bson:"created_at"`
	UpdatedAt               time.Time         `grove:"updated_at"                 bson:"updated_at"`
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
		Metadata:                inv.Metadata,
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
		Metadata:                m.Metadata,
	}, nil
}

// ==================== Stake book models ====================

type stakeBookModel struct {
	grove.BaseModel `grove:"table:factor_stake_books"`

	Owner       string            `grove:"owner,pk"    bson:"_id"`
	Positions   []positionModel   `grove:"positions"   bson:"positions"`
	Withdrawals []withdrawalModel `grove:"withdrawals" bson:"withdrawals"`
	Version     int64             `grove:"version"     bson:"version"`
	UpdatedAt   time.Time         `grove:"updated_at"  bson:"updated_at"`
}

type positionModel struct {
	ID             string     `bson:"id"`
	Currency       string     `bson:"currency"`
	PrincipalCents int64      `bson:"principal_cents"`
	AmountCents    int64      `bson:"amount_cents"`
	OpenedAt       time.Time  `bson:"opened_at"`
	DurationDays   int        `bson:"duration_days"`
	APRBasisPoints int64      `bson:"apr_bps"`
	MaturityAt     time.Time  `bson:"maturity_at"`
	WithdrawnAt    *time.Time `bson:"withdrawn_at,omitempty"`
}

type withdrawalModel struct {
	ID             string            `bson:"id"`
	Currency       string            `bson:"currency"`
	RequestedCents int64             `bson:"requested_cents"`
	PenaltyCents   int64             `bson:"penalty_cents"`
	PaidOutCents   int64             `bson:"paid_out_cents"`
	Allocations    []allocationModel `bson:"allocations"`
	At             time.Time         `bson:"at"`
}

type allocationModel struct {
	PositionID   string `bson:"position_id"`
	AmountCents  int64  `bson:"amount_cents"`
	PenaltyCents int64  `bson:"penalty_cents"`
	Matured      bool   `bson:"matured"`
	Closed       bool   `bson:"closed"`
}

func toStakeBookModel(b *stake.Book, version int64) *stakeBookModel {
	m := &stakeBookModel{
		Owner:       b.Owner,
		Positions:   make([]positionModel, len(b.Positions)),
		Withdrawals: make([]withdrawalModel, len(b.Withdrawals)),
		Version:     version,
		UpdatedAt:   b.UpdatedAt,
	}
	for i, p := range b.Positions {
		m.Positions[i] = positionModel{
			ID:             p.ID.String(),
			Currency:       p.Amount.Currency,
			PrincipalCents: p.Principal.Amount,
			AmountCents:    p.Amount.Amount,
			OpenedAt:       p.OpenedAt,
			DurationDays:   p.DurationDays,
			APRBasisPoints: p.APRBasisPoints,
			MaturityAt:     p.MaturityAt,
			WithdrawnAt:    p.WithdrawnAt,
		}
	}
	for i, w := range b.Withdrawals {
		wm := withdrawalModel{
			ID:             w.ID.String(),
			Currency:       w.Requested.Currency,
			RequestedCents: w.Requested.Amount,
			PenaltyCents:   w.Penalty.Amount,
			PaidOutCents:   w.PaidOut.Amount,
			Allocations:    make([]allocationModel, len(w.Allocations)),
			At:             w.At,
		}
		for j, a := range w.Allocations {
			wm.Allocations[j] = allocationModel{
				PositionID:   a.PositionID.String(),
				AmountCents:  a.Amount.Amount,
				PenaltyCents: a.Penalty.Amount,
				Matured:      a.Matured,
				Closed:       a.Closed,
			}
		}
		m.Withdrawals[i] = wm
	}
	return m
}

func fromStakeBookModel(m *stakeBookModel) (*stake.Book, error) {
	b := &stake.Book{
		Owner:       m.Owner,
		Positions:   make([]*stake.Position, 0, len(m.Positions)),
		Withdrawals: make([]*stake.Withdrawal, 0, len(m.Withdrawals)),
		Version:     m.Version,
		UpdatedAt:   m.UpdatedAt,
	}
	for i := range m.Positions {
		pm := &m.Positions[i]
		posID, err := id.ParseStakeID(pm.ID)
		if err != nil {
			return nil, err
		}
		b.Positions = append(b.Positions, &stake.Position{
			ID:             posID,
			Owner:          m.Owner,
			Principal:      types.Money{Amount: pm.PrincipalCents, Currency: pm.Currency},
			Amount:         types.Money{Amount: pm.AmountCents, Currency: pm.Currency},
			OpenedAt:       pm.OpenedAt,
			DurationDays:   pm.DurationDays,
			APRBasisPoints: pm.APRBasisPoints,
			MaturityAt:     pm.MaturityAt,
			WithdrawnAt:    pm.WithdrawnAt,
		})
	}
	for i := range m.Withdrawals {
		wm := &m.Withdrawals[i]
		wID, err := id.ParseWithdrawalID(wm.ID)
		if err != nil {
			return nil, err
		}
		w := &stake.Withdrawal{
			ID:          wID,
			Owner:       m.Owner,
			Requested:   types.Money{Amount: wm.RequestedCents, Currency: wm.Currency},
			Penalty:     types.Money{Amount: wm.PenaltyCents, Currency: wm.Currency},
			PaidOut:     types.Money{Amount: wm.PaidOutCents, Currency: wm.Currency},
			Allocations: make([]stake.Allocation, len(wm.Allocations)),
			At:          wm.At,
		}
		for j, am := range wm.Allocations {
			posID, err := id.ParseStakeID(am.PositionID)
			if err != nil {
				return nil, err
			}
			w.Allocations[j] = stake.Allocation{
				PositionID: posID,
				Amount:     types.Money{Amount: am.AmountCents, Currency: wm.Currency},
				Penalty:    types.Money{Amount: am.PenaltyCents, Currency: wm.Currency},
				Matured:    am.Matured,
				Closed:     am.Closed,
			}
		}
		b.Withdrawals = append(b.Withdrawals, w)
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
