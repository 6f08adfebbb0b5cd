// Package yield splits a settled invoice's yield pool across stakers in
// proportion to their active stake.
package yield

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
)

// ProjectedRate is the share of an invoice's face amount a dashboard
// projects as income for the whole stake pool.
var ProjectedRate = types.Percent(5)

// Share is one owner's part of a distribution.
type Share struct {
	Owner  string      `json:"owner"`
	Stake  types.Money `json:"stake"`
	Amount types.Money `json:"amount"`
}

// Distribution is the result of splitting one pool. It is computed, not
// stored.
type Distribution struct {
	ID          id.YieldID   `json:"id"`
	InvoiceID   id.InvoiceID `json:"invoice_id"`
	Pool        types.Money  `json:"pool"`
	TotalStake  types.Money  `json:"total_stake"`
	Shares      []Share      `json:"shares"`
	Distributed types.Money  `json:"distributed"`
	// Residual is the pool left over after truncating every share to the
	// cent. It is bounded by one cent per owner and is not reassigned.
	Residual   types.Money `json:"residual"`
	ComputedAt time.Time   `json:"computed_at"`
}

// Clone returns a deep copy of d.
func (d *Distribution) Clone() *Distribution {
	if d == nil {
		return nil
	}
	c := *d
	c.Shares = append([]Share(nil), d.Shares...)
	return &c
}

// ShareOf returns owner's amount, or zero when owner has no share.
func (d *Distribution) ShareOf(owner string) types.Money {
	for _, s := range d.Shares {
		if s.Owner == owner {
			return s.Amount
		}
	}
	return types.Zero(d.Pool.Currency)
}

// Distributor computes distributions. It holds no state.
type Distributor struct{}

// NewDistributor returns a Distributor.
func NewDistributor() *Distributor { return &Distributor{} }

// Distribute splits pool across the active positions in snapshot. Each
// owner's stake is the sum of their active amounts. Shares are truncated
// to the cent so their sum never exceeds pool. With no active stake every
// share is zero.
func (d *Distributor) Distribute(invoiceID id.InvoiceID, pool types.Money, snapshot []*stake.Position, now time.Time) *Distribution {
	stakes := make(map[string]types.Money)
	total := types.Zero(pool.Currency)
	for _, p := range snapshot {
		if p == nil || !p.Active() {
			continue
		}
		cur, ok := stakes[p.Owner]
		if !ok {
			cur = types.Zero(pool.Currency)
		}
		stakes[p.Owner] = cur.Add(p.Amount)
		total = total.Add(p.Amount)
	}

	owners := make([]string, 0, len(stakes))
	for o := range stakes {
		owners = append(owners, o)
	}
	sort.Strings(owners)

	dist := &Distribution{
		ID:          id.NewYieldID(),
		InvoiceID:   invoiceID,
		Pool:        pool,
		TotalStake:  total,
		Shares:      make([]Share, 0, len(owners)),
		Distributed: types.Zero(pool.Currency),
		ComputedAt:  now,
	}

	for _, o := range owners {
		amount := floorShare(pool, stakes[o], total)
		dist.Shares = append(dist.Shares, Share{Owner: o, Stake: stakes[o], Amount: amount})
		dist.Distributed = dist.Distributed.Add(amount)
	}
	dist.Residual = pool.Subtract(dist.Distributed)

	return dist
}

// floorShare returns floor(pool * part / total) in cents.
func floorShare(pool, part, total types.Money) types.Money {
	if !total.IsPositive() || !pool.IsPositive() {
		return types.Zero(pool.Currency)
	}
	num := decimal.NewFromInt(pool.Amount).Mul(decimal.NewFromInt(part.Amount))
	q, _ := num.QuoRem(decimal.NewFromInt(total.Amount), 0)
	return types.New(q.IntPart(), pool.Currency)
}

// Projected estimates what ownerStake would earn from an invoice of face:
// face * 5% * ownerStake / totalStake, rounded half-up to the cent.
func Projected(face, ownerStake, totalStake types.Money) types.Money {
	if !totalStake.IsPositive() || !ownerStake.IsPositive() {
		return types.Zero(face.Currency)
	}
	v := face.Decimal().
		Mul(ProjectedRate).
		Mul(ownerStake.Decimal()).
		DivRound(totalStake.Decimal(), 2)
	return types.FromDecimal(v, face.Currency)
}
