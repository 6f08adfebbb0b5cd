package factor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/pricing"
	"github.com/xraph/factor/types"
)

// InvoiceLedger owns invoice records and enforces the
// pending -> open -> done lifecycle. Every transition is a compare-and-swap
// on the stored status, so concurrent callers racing on one invoice see
// exactly one success.
type InvoiceLedger struct {
	store   invoice.Store
	pricing *pricing.Engine
}

// NewInvoiceLedger returns a ledger over s that prices with pe.
func NewInvoiceLedger(s invoice.Store, pe *pricing.Engine) *InvoiceLedger {
	return &InvoiceLedger{store: s, pricing: pe}
}

// Create validates d, prices it and stores it as pending.
func (l *InvoiceLedger) Create(ctx context.Context, d invoice.Draft, now time.Time) (*invoice.Invoice, error) {
	if err := validateDraft(d, now); err != nil {
		return nil, err
	}

	q, err := l.pricing.Quote(d.FaceAmount, d.Deadline, now)
	if err != nil {
		ve := &ValidationError{}
		ve.AddErr("deadline", err)
		return nil, ve
	}

	inv := &invoice.Invoice{
		Entity:                  types.NewEntityAt(now),
		ID:                      id.NewInvoiceID(),
		NFTID:                   id.NewNFTID(),
		Creator:                 d.Creator,
		CustomerName:            d.CustomerName,
		Description:             d.Description,
		Country:                 d.Country,
		TaxRatePct:              d.TaxRatePct,
		IsRecurring:             d.IsRecurring,
		ESG:                     d.ESG,
		FaceAmount:              d.FaceAmount,
		OfferAmount:             q.OfferAmount,
		DiscountRate:            q.DiscountRate,
		ExpectedReturn:          q.ExpectedReturn,
		Deadline:                d.Deadline,
		EarlyPaymentDiscountPct: d.EarlyPaymentDiscountPct,
		Status:                  invoice.StatusPending,
		Metadata:                d.Metadata,
	}

	if err := l.store.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	return inv.Clone(), nil
}

func validateDraft(d invoice.Draft, now time.Time) error {
	ve := &ValidationError{}

	if d.Creator == "" {
		ve.Add("creator", "is required")
	}
	switch {
	case !d.FaceAmount.IsPositive():
		ve.Add("face_amount", "must be positive")
	case d.FaceAmount.Currency != types.DefaultCurrency:
		ve.Add("face_amount", fmt.Sprintf("currency must be %s", types.DefaultCurrency))
	}
	if !d.Deadline.After(now) {
		ve.AddErr("deadline", ErrInvalidDeadline)
	}
	if d.EarlyPaymentDiscountPct.IsNegative() ||
		d.EarlyPaymentDiscountPct.GreaterThan(decimal.NewFromInt(invoice.MaxEarlyPaymentDiscountPct)) {
		ve.Add("early_payment_discount_pct", fmt.Sprintf("must be between 0 and %d", invoice.MaxEarlyPaymentDiscountPct))
	}
	if d.TaxRatePct < 0 || d.TaxRatePct > 100 {
		ve.Add("tax_rate_pct", "must be between 0 and 100")
	}

	return ve.OrNil()
}

// ConfirmMinted opens a pending invoice once its claim token exists.
func (l *InvoiceLedger) ConfirmMinted(ctx context.Context, invID id.InvoiceID, now time.Time) (*invoice.Invoice, error) {
	return l.transition(ctx, invID, invoice.StatusPending, now, func(inv *invoice.Invoice) error {
		inv.MintedAt = &now
		return nil
	})
}

// Settle closes an open invoice paid by method at now.
func (l *InvoiceLedger) Settle(ctx context.Context, invID id.InvoiceID, now time.Time, method string) (*invoice.Settlement, error) {
	return l.SettleWithPayment(ctx, invID, now, invoice.Payment{Method: method})
}

// SettleWithPayment closes an open invoice. When p.Tendered is positive it
// must cover the amount due.
func (l *InvoiceLedger) SettleWithPayment(ctx context.Context, invID id.InvoiceID, now time.Time, p invoice.Payment) (*invoice.Settlement, error) {
	var s invoice.Settlement

	inv, err := l.transition(ctx, invID, invoice.StatusOpen, now, func(inv *invoice.Invoice) error {
		early, cashback, due := inv.Terms(now)
		if p.Tendered.IsPositive() {
			if p.Tendered.Currency != due.Currency {
				ve := &ValidationError{}
				ve.Add("tendered", fmt.Sprintf("currency must be %s", due.Currency))
				return ve
			}
			if p.Tendered.LessThan(due) {
				return fmt.Errorf("%w: tendered %s, due %s", ErrInsufficientBalance, p.Tendered, due)
			}
		}

		inv.PaidAt = &now
		inv.Cashback = &cashback
		inv.AmountPaid = &due
		inv.PaymentMethod = p.Method

		s = invoice.Settlement{
			Early:     early,
			Cashback:  cashback,
			AmountDue: due,
			YieldPool: inv.ExpectedReturn,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invoice = inv
	return &s, nil
}

// transition moves invID from `from` to its successor, applying mutate to
// a copy first. Nothing is written if mutate fails or the status moved.
func (l *InvoiceLedger) transition(
	ctx context.Context,
	invID id.InvoiceID,
	from invoice.Status,
	now time.Time,
	mutate func(*invoice.Invoice) error,
) (*invoice.Invoice, error) {
	cur, err := l.store.Get(ctx, invID)
	if err != nil {
		return nil, err
	}
	if cur.Status != from {
		return nil, fmt.Errorf("%w: invoice %s is %s, want %s", ErrInvalidTransition, invID, cur.Status, from)
	}

	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Status = from.Next()
	next.TouchAt(now)

	if err := l.store.UpdateIfStatus(ctx, next, from); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: invoice %s is no longer %s", ErrInvalidTransition, invID, from)
		}
		return nil, err
	}

	return next.Clone(), nil
}

// Get returns a copy of the invoice.
func (l *InvoiceLedger) Get(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return l.store.Get(ctx, invID)
}

// List returns invoices matching opts in creation order.
func (l *InvoiceLedger) List(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return l.store.List(ctx, opts)
}

// ListByStatus returns every invoice in status.
func (l *InvoiceLedger) ListByStatus(ctx context.Context, status invoice.Status) ([]*invoice.Invoice, error) {
	return l.store.List(ctx, invoice.ListOpts{Status: status})
}

// ListByOwner returns every invoice created by owner.
func (l *InvoiceLedger) ListByOwner(ctx context.Context, owner string) ([]*invoice.Invoice, error) {
	return l.store.List(ctx, invoice.ListOpts{Creator: owner})
}

// CountByStatus tallies owner's invoices per status. Every status is
// present in the result.
func (l *InvoiceLedger) CountByStatus(ctx context.Context, owner string) (map[invoice.Status]int, error) {
	all, err := l.store.List(ctx, invoice.ListOpts{Creator: owner})
	if err != nil {
		return nil, err
	}

	counts := map[invoice.Status]int{
		invoice.StatusPending: 0,
		invoice.StatusOpen:    0,
		invoice.StatusDone:    0,
	}
	for _, inv := range all {
		counts[inv.Status]++
	}
	return counts, nil
}

// ListPayable returns open invoices whose deadline has not passed.
func (l *InvoiceLedger) ListPayable(ctx context.Context, now time.Time) ([]*invoice.Invoice, error) {
	open, err := l.store.List(ctx, invoice.ListOpts{Status: invoice.StatusOpen})
	if err != nil {
		return nil, err
	}

	out := open[:0]
	for _, inv := range open {
		if inv.IsPayable(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}
