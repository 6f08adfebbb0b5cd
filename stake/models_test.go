package stake_test

import (
	"testing"
	"time"

	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.Add(time.Duration(n) * stake.Day) }

func TestLookupTenor(t *testing.T) {
	tests := []struct {
		days int
		bps  int64
		ok   bool
	}{
		{30, 1000, true},
		{60, 1100, true},
		{90, 1200, true},
		{180, 1500, true},
		{0, 0, false},
		{45, 0, false},
		{365, 0, false},
	}

	for _, tt := range tests {
		got, ok := stake.LookupTenor(tt.days)
		if ok != tt.ok {
			t.Errorf("LookupTenor(%d) ok = %v, want %v", tt.days, ok, tt.ok)
			continue
		}
		if got.APRBasisPoints != tt.bps {
			t.Errorf("LookupTenor(%d) bps = %d, want %d", tt.days, got.APRBasisPoints, tt.bps)
		}
	}
}

func TestTenorsIsACopy(t *testing.T) {
	ts := stake.Tenors()
	ts[0].APRBasisPoints = 1
	if got, _ := stake.LookupTenor(30); got.APRBasisPoints != 1000 {
		t.Errorf("tenor table mutated through Tenors(): %d", got.APRBasisPoints)
	}
}

func TestPositionMaturity(t *testing.T) {
	tenor, _ := stake.LookupTenor(30)
	p := stake.NewPosition("alice", types.USDC(100000), tenor, t0)

	if !p.MaturityAt.Equal(day(30)) {
		t.Fatalf("maturity = %v, want %v", p.MaturityAt, day(30))
	}
	if p.IsMatured(day(30).Add(-time.Second)) {
		t.Error("matured one second early")
	}
	if !p.IsMatured(day(30)) {
		t.Error("not matured at maturity instant")
	}
}

func TestAccruedYield(t *testing.T) {
	tenor, _ := stake.LookupTenor(30)
	p := stake.NewPosition("alice", types.USDC(100000), tenor, t0)

	tests := []struct {
		name string
		at   time.Time
		want int64
	}{
		{"before open", t0.Add(-stake.Day), 0},
		{"same day", t0.Add(23 * time.Hour), 0},
		{"one day", day(1), 27},        // 1000 * 0.10 / 365 = 0.2739
		{"fifteen days", day(15), 411}, // 4.1095
		{"at maturity", day(30), 822},  // 8.2191
		{"capped after maturity", day(90), 822},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.AccruedYield(tt.at); got.Amount != tt.want {
				t.Errorf("AccruedYield = %d, want %d", got.Amount, tt.want)
			}
		})
	}
}

func TestPenalty(t *testing.T) {
	tenor, _ := stake.LookupTenor(30)
	p := stake.NewPosition("alice", types.USDC(100000), tenor, t0)

	if got := p.Penalty(types.USDC(100000), day(15)); got.Amount != 10000 {
		t.Errorf("early penalty = %d, want 10000", got.Amount)
	}
	if got := p.Penalty(types.USDC(500000), day(15)); got.Amount != 10000 {
		t.Errorf("penalty must cap at position amount, got %d", got.Amount)
	}
	if got := p.Penalty(types.USDC(100000), day(30)); !got.IsZero() {
		t.Errorf("matured penalty = %d, want 0", got.Amount)
	}
}

func TestBookPlanOrdersByMaturity(t *testing.T) {
	t30, _ := stake.LookupTenor(30)
	t90, _ := stake.LookupTenor(90)

	b := stake.NewBook("alice")
	long := stake.NewPosition("alice", types.USDC(50000), t90, t0)
	short := stake.NewPosition("alice", types.USDC(30000), t30, day(10))
	b.Positions = []*stake.Position{long, short}

	w, ok := b.Plan(types.USDC(40000), day(20))
	if !ok {
		t.Fatal("plan rejected a covered amount")
	}
	if len(w.Allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(w.Allocations))
	}
	if w.Allocations[0].PositionID != short.ID || !w.Allocations[0].Closed {
		t.Errorf("first allocation should close the earlier-maturing position")
	}
	if w.Allocations[1].PositionID != long.ID || w.Allocations[1].Amount.Amount != 10000 {
		t.Errorf("second allocation = %+v", w.Allocations[1])
	}
	if w.Penalty.Amount != 4000 || w.PaidOut.Amount != 36000 {
		t.Errorf("penalty/paid = %d/%d, want 4000/36000", w.Penalty.Amount, w.PaidOut.Amount)
	}

	// Planning does not mutate.
	if short.Amount.Amount != 30000 || long.Amount.Amount != 50000 {
		t.Fatal("Plan mutated positions")
	}

	b.Apply(w)
	if short.WithdrawnAt == nil || short.Amount.Amount != 0 {
		t.Error("short position should be closed")
	}
	if long.WithdrawnAt != nil || long.Amount.Amount != 40000 {
		t.Errorf("long position = %d withdrawn=%v", long.Amount.Amount, long.WithdrawnAt)
	}
	if b.Total().Amount != 40000 {
		t.Errorf("total = %d, want 40000", b.Total().Amount)
	}
	if len(b.Withdrawals) != 1 {
		t.Errorf("withdrawals = %d, want 1", len(b.Withdrawals))
	}
}

func TestBookPlanInsufficient(t *testing.T) {
	tenor, _ := stake.LookupTenor(30)
	b := stake.NewBook("bob")
	b.Positions = []*stake.Position{stake.NewPosition("bob", types.USDC(1000), tenor, t0)}

	if _, ok := b.Plan(types.USDC(1001), day(1)); ok {
		t.Error("plan accepted more than the active total")
	}
}

func TestBookCloneIsDeep(t *testing.T) {
	tenor, _ := stake.LookupTenor(60)
	b := stake.NewBook("carol")
	b.Positions = []*stake.Position{stake.NewPosition("carol", types.USDC(1000), tenor, t0)}

	c := b.Clone()
	c.Positions[0].Amount = types.USDC(1)
	if b.Positions[0].Amount.Amount != 1000 {
		t.Error("clone shares positions with original")
	}
}
