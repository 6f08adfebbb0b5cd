// Package pricing turns an invoice's face amount and deadline into the
// immediate payout offer, the discount rate behind it, and the yield pool
// promised to stakers.
//
// The discount rate and the expected return use independent constants. The
// rate drives what the creator receives today; the expected return is a
// linear per-day estimate of what stakers earn. They are intentionally not
// derived from each other.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/factor/types"
)

// Day is the unit every tenor is measured in.
const Day = 24 * time.Hour

// ErrInvalidDeadline is returned when the deadline is not at least part of
// a day in the future.
var ErrInvalidDeadline = errors.New("factor: deadline must be after now")

// Policy holds the pricing constants.
type Policy struct {
	// BaseRate is the discount applied regardless of tenor.
	BaseRate decimal.Decimal `json:"base_rate"`
	// DailyRate is added to the discount for every day until the deadline.
	DailyRate decimal.Decimal `json:"daily_rate"`
	// MaxRate caps the discount rate.
	MaxRate decimal.Decimal `json:"max_rate"`
	// YieldPerDay is the fraction of face amount promised to stakers per day.
	YieldPerDay decimal.Decimal `json:"yield_per_day"`
}

// DefaultPolicy returns the standard marketplace pricing: 2% base, 0.1% per
// day, capped at 15%, with a 0.1% per day staker yield.
func DefaultPolicy() Policy {
	return Policy{
		BaseRate:    types.MustRate("0.02"),
		DailyRate:   types.MustRate("0.001"),
		MaxRate:     types.MustRate("0.15"),
		YieldPerDay: types.MustRate("0.001"),
	}
}

// Validate checks that the constants describe a usable curve.
func (p Policy) Validate() error {
	switch {
	case p.BaseRate.IsNegative():
		return fmt.Errorf("pricing: base rate %s is negative", p.BaseRate)
	case p.DailyRate.IsNegative():
		return fmt.Errorf("pricing: daily rate %s is negative", p.DailyRate)
	case p.YieldPerDay.IsNegative():
		return fmt.Errorf("pricing: yield per day %s is negative", p.YieldPerDay)
	case p.MaxRate.LessThan(p.BaseRate):
		return fmt.Errorf("pricing: max rate %s is below base rate %s", p.MaxRate, p.BaseRate)
	case p.MaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return fmt.Errorf("pricing: max rate %s must be below 1", p.MaxRate)
	}

	return nil
}

// Quote is the result of pricing one invoice.
type Quote struct {
	DaysUntilDeadline int             `json:"days_until_deadline"`
	DiscountRate      decimal.Decimal `json:"discount_rate"`
	OfferAmount       types.Money     `json:"offer_amount"`
	ExpectedReturn    types.Money     `json:"expected_return"`
}

// Engine prices invoices. It is stateless and safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine returns an engine using policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the constants the engine prices with.
func (e *Engine) Policy() Policy { return e.policy }

// DaysUntil returns the number of started days between now and deadline.
// Any fraction of a day counts as a whole day.
func DaysUntil(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}

	days := d / Day
	if d%Day != 0 {
		days++
	}

	return int(days)
}

// Rate returns the discount rate for an invoice due in days.
func (e *Engine) Rate(days int) decimal.Decimal {
	rate := e.policy.BaseRate.Add(e.policy.DailyRate.Mul(decimal.NewFromInt(int64(days))))

	return decimal.Min(rate, e.policy.MaxRate)
}

// Quote prices face for a deadline observed at now.
func (e *Engine) Quote(face types.Money, deadline, now time.Time) (Quote, error) {
	days := DaysUntil(deadline, now)
	if days <= 0 {
		return Quote{}, ErrInvalidDeadline
	}

	rate := e.Rate(days)
	one := decimal.NewFromInt(1)

	return Quote{
		DaysUntilDeadline: days,
		DiscountRate:      rate,
		OfferAmount:       face.MulRate(one.Sub(rate)),
		ExpectedReturn:    face.MulRate(e.policy.YieldPerDay.Mul(decimal.NewFromInt(int64(days)))),
	}, nil
}
