package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/types"
)

// CashbackRate is returned to a payer who settles before the deadline.
var CashbackRate = types.Percent(3)

// MaxEarlyPaymentDiscountPct bounds the discount a creator may offer for
// early payment, in percent.
const MaxEarlyPaymentDiscountPct = 10

// Status is the lifecycle position of an invoice. It only moves forward:
// pending -> open -> done.
type Status string

const (
	// StatusPending is set at creation while the claim token is being minted.
	StatusPending Status = "pending"
	// StatusOpen means the claim token exists and the invoice can be paid.
	StatusOpen Status = "open"
	// StatusDone is terminal: the payer has settled the invoice.
	StatusDone Status = "done"
)

// Next returns the only status reachable from s, or "" when s is terminal
// or unknown.
func (s Status) Next() Status {
	switch s {
	case StatusPending:
		return StatusOpen
	case StatusOpen:
		return StatusDone
	default:
		return ""
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusOpen || s == StatusDone
}

// Invoice is a tokenized claim on a future payment.
type Invoice struct {
	types.Entity
	ID    id.InvoiceID `json:"id"`
	NFTID id.NFTID     `json:"nft_id"`

	Creator      string `json:"creator"`
	CustomerName string `json:"customer_name,omitempty"`
	Description  string `json:"description,omitempty"`
	Country      string `json:"country,omitempty"`
	TaxRatePct   int    `json:"tax_rate_pct,omitempty"`
	IsRecurring  bool   `json:"is_recurring,omitempty"`
	ESG          bool   `json:"esg,omitempty"`

	FaceAmount              types.Money     `json:"face_amount"`
	OfferAmount             types.Money     `json:"offer_amount"`
	DiscountRate            decimal.Decimal `json:"discount_rate"`
	ExpectedReturn          types.Money     `json:"expected_return"`
	Deadline                time.Time       `json:"deadline"`
	EarlyPaymentDiscountPct decimal.Decimal `json:"early_payment_discount_pct"`

	Status        Status            `json:"status"`
	MintedAt      *time.Time        `json:"minted_at,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	Cashback      *types.Money      `json:"cashback,omitempty"`
	AmountPaid    *types.Money      `json:"amount_paid,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// IsPayable reports whether the invoice can be settled before its deadline.
func (inv *Invoice) IsPayable(now time.Time) bool {
	return inv.Status == StatusOpen && now.Before(inv.Deadline)
}

// Terms returns what settling at now would cost and earn. Paying before
// the deadline earns the flat cashback and also applies the creator's early
// payment discount to the amount due.
func (inv *Invoice) Terms(now time.Time) (early bool, cashback, due types.Money) {
	early = now.Before(inv.Deadline)
	if !early {
		return false, types.Zero(inv.FaceAmount.Currency), inv.FaceAmount
	}
	cashback = inv.FaceAmount.MulRate(CashbackRate)
	due = inv.FaceAmount.MulRate(decimal.NewFromInt(1).Sub(inv.EarlyPaymentDiscountPct.Shift(-2)))
	return true, cashback, due
}

// Clone returns a deep copy of inv.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	if inv.MintedAt != nil {
		t := *inv.MintedAt
		c.MintedAt = &t
	}
	if inv.PaidAt != nil {
		t := *inv.PaidAt
		c.PaidAt = &t
	}
	if inv.Cashback != nil {
		m := *inv.Cashback
		c.Cashback = &m
	}
	if inv.AmountPaid != nil {
		m := *inv.AmountPaid
		c.AmountPaid = &m
	}
	if inv.Metadata != nil {
		c.Metadata = make(map[string]string, len(inv.Metadata))
		for k, v := range inv.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Draft is the caller-supplied data for a new invoice. Pricing fields are
// computed, never supplied.
type Draft struct {
	Creator      string `json:"creator"`
	CustomerName string `json:"customer_name,omitempty"`
	Description  string `json:"description,omitempty"`
	Country      string `json:"country,omitempty"`
	TaxRatePct   int    `json:"tax_rate_pct,omitempty"`
	IsRecurring  bool   `json:"is_recurring,omitempty"`
	ESG          bool   `json:"esg,omitempty"`

	FaceAmount              types.Money       `json:"face_amount"`
	Deadline                time.Time         `json:"deadline"`
	EarlyPaymentDiscountPct decimal.Decimal   `json:"early_payment_discount_pct"`
	Metadata                map[string]string `json:"metadata,omitempty"`
}

// Settlement is the outcome of paying an invoice.
type Settlement struct {
	Invoice *Invoice `json:"invoice"`
	// Early is true when payment arrived before the deadline.
	Early bool `json:"early"`
	// Cashback is the incentive returned to an early payer.
	Cashback types.Money `json:"cashback"`
	// AmountDue is face amount less the early payment discount, if any.
	AmountDue types.Money `json:"amount_due"`
	// YieldPool is the amount handed to the yield distributor.
	YieldPool types.Money `json:"yield_pool"`
}

// Clone returns a deep copy of s.
func (s *Settlement) Clone() *Settlement {
	if s == nil {
		return nil
	}
	c := *s
	c.Invoice = s.Invoice.Clone()
	return &c
}

// Payment describes how a payer settles. A positive Tendered amount is
// checked against the amount due; zero skips the check.
type Payment struct {
	Method   string      `json:"method"`
	Tendered types.Money `json:"tendered"`
}

// ListOpts filters invoice listings. Results are ordered by creation time.
type ListOpts struct {
	Status  Status
	Creator string
	Limit   int
	Offset  int
}
