package pricing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/factor/pricing"
	"github.com/xraph/factor/types"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestQuoteScenario(t *testing.T) {
	e := pricing.NewEngine(pricing.DefaultPolicy())

	q, err := e.Quote(types.USDC(500000), now.Add(30*pricing.Day), now)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.DaysUntilDeadline != 30 {
		t.Errorf("days = %d, want 30", q.DaysUntilDeadline)
	}
	if !q.DiscountRate.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("rate = %s, want 0.05", q.DiscountRate)
	}
	if q.OfferAmount.Amount != 475000 {
		t.Errorf("offer = %s, want 4750.00", q.OfferAmount)
	}
	if q.ExpectedReturn.Amount != 15000 {
		t.Errorf("expected return = %s, want 150.00", q.ExpectedReturn)
	}
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"past", now.Add(-time.Hour), 0},
		{"now", now, 0},
		{"one second", now.Add(time.Second), 1},
		{"exactly one day", now.Add(pricing.Day), 1},
		{"day and a minute", now.Add(pricing.Day + time.Minute), 2},
		{"thirty days", now.Add(30 * pricing.Day), 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pricing.DaysUntil(tt.deadline, now); got != tt.want {
				t.Errorf("DaysUntil = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQuoteInvalidDeadline(t *testing.T) {
	e := pricing.NewEngine(pricing.DefaultPolicy())

	for _, deadline := range []time.Time{now, now.Add(-pricing.Day)} {
		if _, err := e.Quote(types.USDC(100), deadline, now); !errors.Is(err, pricing.ErrInvalidDeadline) {
			t.Errorf("Quote(%v) err = %v, want ErrInvalidDeadline", deadline, err)
		}
	}
}

func TestRateIsCappedAndMonotonic(t *testing.T) {
	e := pricing.NewEngine(pricing.DefaultPolicy())
	lo := decimal.RequireFromString("0.02")
	hi := decimal.RequireFromString("0.15")

	prev := decimal.Zero
	for days := 1; days <= 400; days++ {
		r := e.Rate(days)
		if r.LessThan(lo) || r.GreaterThan(hi) {
			t.Fatalf("Rate(%d) = %s outside [0.02, 0.15]", days, r)
		}
		if r.LessThan(prev) {
			t.Fatalf("Rate(%d) = %s decreased from %s", days, r, prev)
		}
		prev = r
	}

	if !e.Rate(130).Equal(hi) {
		t.Errorf("Rate(130) = %s, want cap", e.Rate(130))
	}
	if !e.Rate(365).Equal(hi) {
		t.Errorf("Rate(365) = %s, want cap", e.Rate(365))
	}
}

func TestOfferBounds(t *testing.T) {
	e := pricing.NewEngine(pricing.DefaultPolicy())

	faces := []int64{1, 2, 99, 100, 12345, 500000, 999999999}
	for _, f := range faces {
		for _, days := range []int{1, 7, 30, 90, 200} {
			face := types.USDC(f)
			q, err := e.Quote(face, now.Add(time.Duration(days)*pricing.Day), now)
			if err != nil {
				t.Fatalf("Quote: %v", err)
			}
			if !q.OfferAmount.IsPositive() || q.OfferAmount.GreaterThan(face) {
				t.Errorf("face %s days %d: offer %s out of (0, face]", face, days, q.OfferAmount)
			}
			if q.ExpectedReturn.IsNegative() {
				t.Errorf("face %s days %d: negative expected return %s", face, days, q.ExpectedReturn)
			}
		}
	}
}

func TestQuoteRoundsHalfUp(t *testing.T) {
	e := pricing.NewEngine(pricing.DefaultPolicy())

	// 0.50 at 30 days: offer 0.475 -> 0.48, expected return 0.015 -> 0.02.
	q, err := e.Quote(types.USDC(50), now.Add(30*pricing.Day), now)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.OfferAmount.Amount != 48 {
		t.Errorf("offer = %d cents, want 48", q.OfferAmount.Amount)
	}
	if q.ExpectedReturn.Amount != 2 {
		t.Errorf("expected return = %d cents, want 2", q.ExpectedReturn.Amount)
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := pricing.DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*pricing.Policy)
	}{
		{"negative base", func(p *pricing.Policy) { p.BaseRate = decimal.RequireFromString("-0.01") }},
		{"negative daily", func(p *pricing.Policy) { p.DailyRate = decimal.RequireFromString("-0.001") }},
		{"negative yield", func(p *pricing.Policy) { p.YieldPerDay = decimal.RequireFromString("-0.001") }},
		{"max below base", func(p *pricing.Policy) { p.MaxRate = decimal.RequireFromString("0.01") }},
		{"max at one", func(p *pricing.Policy) { p.MaxRate = decimal.NewFromInt(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pricing.DefaultPolicy()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
