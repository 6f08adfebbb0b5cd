package invoice_test

import (
	"testing"
	"time"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/types"
)

func TestStatusNext(t *testing.T) {
	tests := []struct {
		from invoice.Status
		want invoice.Status
	}{
		{invoice.StatusPending, invoice.StatusOpen},
		{invoice.StatusOpen, invoice.StatusDone},
		{invoice.StatusDone, ""},
		{"bogus", ""},
	}

	for _, tt := range tests {
		if got := tt.from.Next(); got != tt.want {
			t.Errorf("%q.Next() = %q, want %q", tt.from, got, tt.want)
		}
	}
}

func TestIsPayable(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	inv := &invoice.Invoice{Status: invoice.StatusOpen, Deadline: now.Add(time.Hour)}

	if !inv.IsPayable(now) {
		t.Error("open invoice before deadline should be payable")
	}
	if inv.IsPayable(now.Add(time.Hour)) {
		t.Error("invoice at deadline should not be payable")
	}
	inv.Status = invoice.StatusPending
	if inv.IsPayable(now) {
		t.Error("pending invoice should not be payable")
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	cb := types.USDC(100)
	inv := &invoice.Invoice{
		PaidAt:   &now,
		Cashback: &cb,
		Metadata: map[string]string{"k": "v"},
	}

	c := inv.Clone()
	c.Metadata["k"] = "changed"
	c.Cashback.Amount = 1
	*c.PaidAt = now.Add(time.Hour)

	if inv.Metadata["k"] != "v" || inv.Cashback.Amount != 100 || !inv.PaidAt.Equal(now) {
		t.Error("clone shares state with original")
	}
}

func TestTerms(t *testing.T) {
	deadline := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	inv := &invoice.Invoice{
		FaceAmount:              types.USDC(500000),
		Deadline:                deadline,
		EarlyPaymentDiscountPct: types.MustRate("2"),
	}

	early, cashback, due := inv.Terms(deadline.Add(-time.Hour))
	if !early || cashback.Amount != 15000 || due.Amount != 490000 {
		t.Errorf("early terms = %v/%d/%d, want true/15000/490000", early, cashback.Amount, due.Amount)
	}

	early, cashback, due = inv.Terms(deadline)
	if early || !cashback.IsZero() || due.Amount != 500000 {
		t.Errorf("on-time terms = %v/%d/%d, want false/0/500000", early, cashback.Amount, due.Amount)
	}
}
