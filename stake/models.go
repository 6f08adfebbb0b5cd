// Package stake models fixed-tenor staking positions, the per-owner book
// that holds them, and the arithmetic of accrual, maturity and early
// withdrawal.
package stake

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/types"
)

// Day is the unit tenors and accrual are measured in.
const Day = 24 * time.Hour

// DaysPerYear converts an APR into a daily rate.
const DaysPerYear = 365

// PenaltyRate is charged on principal withdrawn before maturity.
var PenaltyRate = types.Percent(10)

// Tenor is a supported staking duration and the APR it earns.
type Tenor struct {
	Days           int   `json:"days" yaml:"days"`
	APRBasisPoints int64 `json:"apr_bps" yaml:"apr_bps"`
}

// APR returns the tenor's annual rate as a fraction.
func (t Tenor) APR() decimal.Decimal { return types.BasisPoints(t.APRBasisPoints) }

var tenors = []Tenor{
	{Days: 30, APRBasisPoints: 1000},
	{Days: 60, APRBasisPoints: 1100},
	{Days: 90, APRBasisPoints: 1200},
	{Days: 180, APRBasisPoints: 1500},
}

// Tenors returns the supported tenors, shortest first.
func Tenors() []Tenor {
	out := make([]Tenor, len(tenors))
	copy(out, tenors)
	return out
}

// LookupTenor returns the tenor for days.
func LookupTenor(days int) (Tenor, bool) {
	for _, t := range tenors {
		if t.Days == days {
			return t, true
		}
	}
	return Tenor{}, false
}

// Position is one deposit locked for a fixed tenor.
type Position struct {
	ID             id.StakeID  `json:"id"`
	Owner          string      `json:"owner"`
	Principal      types.Money `json:"principal"`
	Amount         types.Money `json:"amount"`
	OpenedAt       time.Time   `json:"opened_at"`
	DurationDays   int         `json:"duration_days"`
	APRBasisPoints int64       `json:"apr_bps"`
	MaturityAt     time.Time   `json:"maturity_at"`
	WithdrawnAt    *time.Time  `json:"withdrawn_at,omitempty"`
}

// NewPosition opens a position for owner at now.
func NewPosition(owner string, amount types.Money, tenor Tenor, now time.Time) *Position {
	return &Position{
		ID:             id.NewStakeID(),
		Owner:          owner,
		Principal:      amount,
		Amount:         amount,
		OpenedAt:       now,
		DurationDays:   tenor.Days,
		APRBasisPoints: tenor.APRBasisPoints,
		MaturityAt:     MaturityAt(now, tenor.Days),
	}
}

// MaturityAt returns openedAt plus days.
func MaturityAt(openedAt time.Time, days int) time.Time {
	return openedAt.Add(time.Duration(days) * Day)
}

// Active reports whether the position still holds principal.
func (p *Position) Active() bool {
	return p.WithdrawnAt == nil && p.Amount.IsPositive()
}

// IsMatured reports whether now is at or past maturity.
func (p *Position) IsMatured(now time.Time) bool {
	return !now.Before(p.MaturityAt)
}

// DaysElapsed returns whole days since the position opened, never negative.
func (p *Position) DaysElapsed(now time.Time) int {
	d := now.Sub(p.OpenedAt)
	if d <= 0 {
		return 0
	}
	return int(d / Day)
}

// AccruedYield returns simple daily interest on the remaining amount,
// capped at the tenor. Rounded half-up to the cent.
func (p *Position) AccruedYield(now time.Time) types.Money {
	days := min(p.DaysElapsed(now), p.DurationDays)
	return Interest(p.Amount, p.APRBasisPoints, days)
}

// Interest returns amount * (apr/365) * days rounded half-up to the cent.
func Interest(amount types.Money, aprBasisPoints int64, days int) types.Money {
	if days <= 0 {
		return types.Zero(amount.Currency)
	}
	v := amount.Decimal().
		Mul(types.BasisPoints(aprBasisPoints)).
		Mul(decimal.NewFromInt(int64(days))).
		DivRound(decimal.NewFromInt(DaysPerYear), 2)
	return types.FromDecimal(v, amount.Currency)
}

// Penalty returns the early withdrawal charge for taking amount out of p
// at now. Matured positions carry no penalty.
func (p *Position) Penalty(amount types.Money, now time.Time) types.Money {
	if p.IsMatured(now) {
		return types.Zero(amount.Currency)
	}
	return amount.Min(p.Amount).MulRate(PenaltyRate)
}

// Clone returns a deep copy of p.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	c := *p
	if p.WithdrawnAt != nil {
		t := *p.WithdrawnAt
		c.WithdrawnAt = &t
	}
	return &c
}

// Allocation is the part of a withdrawal drawn from one position.
type Allocation struct {
	PositionID id.StakeID  `json:"position_id"`
	Amount     types.Money `json:"amount"`
	Penalty    types.Money `json:"penalty"`
	Matured    bool        `json:"matured"`
	Closed     bool        `json:"closed"`
}

// Withdrawal records principal taken out of a book.
type Withdrawal struct {
	ID          id.WithdrawalID `json:"id"`
	Owner       string          `json:"owner"`
	Requested   types.Money     `json:"requested"`
	Penalty     types.Money     `json:"penalty"`
	PaidOut     types.Money     `json:"paid_out"`
	Allocations []Allocation    `json:"allocations"`
	At          time.Time       `json:"at"`
}

// Clone returns a deep copy of w.
func (w *Withdrawal) Clone() *Withdrawal {
	if w == nil {
		return nil
	}
	c := *w
	c.Allocations = append([]Allocation(nil), w.Allocations...)
	return &c
}

// Book is everything one owner has staked. It is read and written as a
// unit; Version increments on every successful save.
type Book struct {
	Owner       string        `json:"owner"`
	Positions   []*Position   `json:"positions"`
	Withdrawals []*Withdrawal `json:"withdrawals"`
	Version     int64         `json:"version"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewBook returns an empty, unsaved book.
func NewBook(owner string) *Book {
	return &Book{Owner: owner}
}

// Clone returns a deep copy of b.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	c := *b
	c.Positions = make([]*Position, len(b.Positions))
	for i, p := range b.Positions {
		c.Positions[i] = p.Clone()
	}
	c.Withdrawals = make([]*Withdrawal, len(b.Withdrawals))
	for i, w := range b.Withdrawals {
		c.Withdrawals[i] = w.Clone()
	}
	return &c
}

// Active returns the positions still holding principal, in withdrawal
// order: earliest maturity first, then earliest opened, then by id.
func (b *Book) Active() []*Position {
	out := make([]*Position, 0, len(b.Positions))
	for _, p := range b.Positions {
		if p.Active() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if !a.MaturityAt.Equal(c.MaturityAt) {
			return a.MaturityAt.Before(c.MaturityAt)
		}
		if !a.OpenedAt.Equal(c.OpenedAt) {
			return a.OpenedAt.Before(c.OpenedAt)
		}
		return a.ID.String() < c.ID.String()
	})
	return out
}

// Total returns the sum of active amounts.
func (b *Book) Total() types.Money {
	total := types.Zero(types.DefaultCurrency)
	for _, p := range b.Positions {
		if p.Active() {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// Plan computes how amount would be drawn from the book at now without
// changing it. ok is false when amount exceeds the active total.
func (b *Book) Plan(amount types.Money, now time.Time) (w *Withdrawal, ok bool) {
	if amount.GreaterThan(b.Total()) {
		return nil, false
	}

	w = &Withdrawal{
		ID:        id.NewWithdrawalID(),
		Owner:     b.Owner,
		Requested: amount,
		Penalty:   types.Zero(amount.Currency),
		At:        now,
	}

	remaining := amount
	for _, p := range b.Active() {
		if !remaining.IsPositive() {
			break
		}
		take := remaining.Min(p.Amount)
		penalty := p.Penalty(take, now)
		w.Allocations = append(w.Allocations, Allocation{
			PositionID: p.ID,
			Amount:     take,
			Penalty:    penalty,
			Matured:    p.IsMatured(now),
			Closed:     take.Equal(p.Amount),
		})
		w.Penalty = w.Penalty.Add(penalty)
		remaining = remaining.Subtract(take)
	}
	w.PaidOut = amount.Subtract(w.Penalty)

	return w, true
}

// Apply draws w's allocations from the book's positions and appends w to
// the history. w must come from Plan on the same book state.
func (b *Book) Apply(w *Withdrawal) {
	byID := make(map[string]*Position, len(b.Positions))
	for _, p := range b.Positions {
		byID[p.ID.String()] = p
	}
	for _, a := range w.Allocations {
		p, ok := byID[a.PositionID.String()]
		if !ok {
			continue
		}
		p.Amount = p.Amount.Subtract(a.Amount)
		if a.Closed || p.Amount.IsZero() {
			at := w.At
			p.WithdrawnAt = &at
		}
	}
	b.Withdrawals = append(b.Withdrawals, w)
	b.UpdatedAt = w.At
}
