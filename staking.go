package factor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
)

// Balance summarizes one owner's stake at an instant.
type Balance struct {
	Owner string `json:"owner"`
	// Staked is the principal still in the pool.
	Staked types.Money `json:"staked"`
	// Matured is the part of Staked that can leave without penalty.
	Matured types.Money `json:"matured"`
	// Accrued is interest earned so far on active positions.
	Accrued   types.Money       `json:"accrued"`
	Positions []*stake.Position `json:"positions"`
}

// StakePool owns every owner's stake book. Deposits and withdrawals for one
// owner are serialized in process by a per-owner lock and across processes
// by the book's version check in the store.
type StakePool struct {
	store stake.Store
	locks keyedMutex
}

// NewStakePool returns a pool persisted in s.
func NewStakePool(s stake.Store) *StakePool {
	return &StakePool{store: s}
}

// Deposit opens a position of amount for durationDays.
func (p *StakePool) Deposit(ctx context.Context, owner string, amount types.Money, durationDays int, now time.Time) (*stake.Position, error) {
	ve := &ValidationError{}
	if owner == "" {
		ve.Add("owner", "is required")
	}
	validateAmount(ve, amount, nil)
	tenor, ok := stake.LookupTenor(durationDays)
	if !ok {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   "duration_days",
			Message: fmt.Sprintf("%d is not a supported tenor", durationDays),
			Err:     ErrUnsupportedDuration,
		})
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(owner)
	defer unlock()

	book, err := p.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	pos := stake.NewPosition(owner, amount, tenor, now)
	version := book.Version
	book.Positions = append(book.Positions, pos)
	book.UpdatedAt = now

	if err := p.store.SaveBook(ctx, book, version); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	return pos.Clone(), nil
}

// Withdraw takes amount out of owner's active positions, earliest maturity
// first. Each position drawn before maturity is charged the early
// withdrawal penalty on the portion taken from it.
func (p *StakePool) Withdraw(ctx context.Context, owner string, amount types.Money, now time.Time) (*stake.Withdrawal, error) {
	ve := &ValidationError{}
	validateAmount(ve, amount, ErrInsufficientStake)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	unlock := p.locks.Lock(owner)
	defer unlock()

	book, err := p.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	w, err := plan(book, amount, now)
	if err != nil {
		return nil, err
	}

	version := book.Version
	book.Apply(w)

	if err := p.store.SaveBook(ctx, book, version); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	return w.Clone(), nil
}

// PreviewWithdrawal computes what Withdraw would pay out at now without
// changing anything.
func (p *StakePool) PreviewWithdrawal(ctx context.Context, owner string, amount types.Money, now time.Time) (*stake.Withdrawal, error) {
	ve := &ValidationError{}
	validateAmount(ve, amount, ErrInsufficientStake)
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	book, err := p.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	return plan(book, amount, now)
}

func plan(book *stake.Book, amount types.Money, now time.Time) (*stake.Withdrawal, error) {
	w, ok := book.Plan(amount, now)
	if !ok {
		total := book.Total()
		if len(book.Positions) == 0 {
			return nil, fmt.Errorf("%w: %w: %s", ErrInsufficientStake, ErrStakeBookNotFound, book.Owner)
		}
		return nil, fmt.Errorf("%w: requested %s, staked %s", ErrInsufficientStake, amount, total)
	}
	return w, nil
}

func validateAmount(ve *ValidationError, amount types.Money, sentinel error) {
	switch {
	case !amount.IsPositive():
		ve.Fields = append(ve.Fields, FieldError{Field: "amount", Message: "must be positive", Err: sentinel})
	case amount.Currency != types.DefaultCurrency:
		ve.Add("amount", fmt.Sprintf("currency must be %s", types.DefaultCurrency))
	}
}

// load returns owner's book, or a fresh unsaved one.
func (p *StakePool) load(ctx context.Context, owner string) (*stake.Book, error) {
	book, err := p.store.GetBook(ctx, owner)
	if errors.Is(err, ErrStakeBookNotFound) {
		return stake.NewBook(owner), nil
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// AccruedYield returns interest earned by pos up to now.
func (p *StakePool) AccruedYield(pos *stake.Position, now time.Time) types.Money {
	return pos.AccruedYield(now)
}

// IsMatured reports whether pos can be withdrawn without penalty at now.
func (p *StakePool) IsMatured(pos *stake.Position, now time.Time) bool {
	return pos.IsMatured(now)
}

// Penalty returns the charge for withdrawing amount from pos at now.
func (p *StakePool) Penalty(pos *stake.Position, amount types.Money, now time.Time) types.Money {
	return pos.Penalty(amount, now)
}

// ProjectedYield returns what amount would earn if held for the full tenor.
func (p *StakePool) ProjectedYield(amount types.Money, durationDays int) (types.Money, error) {
	tenor, ok := stake.LookupTenor(durationDays)
	if !ok {
		return types.Money{}, fmt.Errorf("%w: %d days", ErrUnsupportedDuration, durationDays)
	}
	return stake.Interest(amount, tenor.APRBasisPoints, tenor.Days), nil
}

// Positions returns owner's active positions in withdrawal order.
func (p *StakePool) Positions(ctx context.Context, owner string) ([]*stake.Position, error) {
	book, err := p.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return book.Active(), nil
}

// Balance summarizes owner's stake at now. Unknown owners have a zero
// balance.
func (p *StakePool) Balance(ctx context.Context, owner string, now time.Time) (*Balance, error) {
	book, err := p.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	b := &Balance{
		Owner:     owner,
		Staked:    types.Zero(types.DefaultCurrency),
		Matured:   types.Zero(types.DefaultCurrency),
		Accrued:   types.Zero(types.DefaultCurrency),
		Positions: book.Active(),
	}
	for _, pos := range b.Positions {
		b.Staked = b.Staked.Add(pos.Amount)
		b.Accrued = b.Accrued.Add(pos.AccruedYield(now))
		if pos.IsMatured(now) {
			b.Matured = b.Matured.Add(pos.Amount)
		}
	}
	return b, nil
}

// Snapshot returns every active position across all owners, read in one
// consistent pass of the store.
func (p *StakePool) Snapshot(ctx context.Context) ([]*stake.Position, error) {
	books, err := p.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot stakes: %w", err)
	}

	var out []*stake.Position
	for _, b := range books {
		out = append(out, b.Active()...)
	}
	return out, nil
}

// keyedMutex hands out one mutex per key and frees it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is held and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
