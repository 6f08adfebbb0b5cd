// Package memory is an in-process store.Store. It keeps every entity in
// maps behind one RWMutex and hands out deep copies, so callers never share
// state with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Invoice storage, plus insertion order for listing
	invoices     map[string]*invoice.Invoice
	invoiceOrder []string

	// Stake books keyed by owner
	books map[string]*stake.Book

	closed bool
}

func New() *Store {
	return &Store{
		invoices: make(map[string]*invoice.Invoice),
		books:    make(map[string]*stake.Book),
	}
}

// Invoice Store implementation

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return factor.ErrStoreClosed
	}
	key := inv.ID.String()
	if _, exists := s.invoices[key]; exists {
		return factor.ErrAlreadyExists
	}
	s.invoices[key] = inv.Clone()
	s.invoiceOrder = append(s.invoiceOrder, key)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invID.String()]; ok {
		return inv.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", factor.ErrInvoiceNotFound, invID)
}

func (s *Store) ListInvoices(_ context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for _, key := range s.invoiceOrder {
		inv := s.invoices[key]
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		if opts.Creator != "" && inv.Creator != opts.Creator {
			continue
		}
		result = append(result, inv.Clone())
	}

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateInvoiceIfStatus(_ context.Context, inv *invoice.Invoice, expected invoice.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.invoices[inv.ID.String()]
	if !ok {
		return fmt.Errorf("%w: %s", factor.ErrInvoiceNotFound, inv.ID)
	}
	if cur.Status != expected {
		return fmt.Errorf("%w: invoice %s is %s", factor.ErrInvalidTransition, inv.ID, cur.Status)
	}
	s.invoices[inv.ID.String()] = inv.Clone()
	return nil
}

// Stake Store implementation

func (s *Store) GetStakeBook(_ context.Context, owner string) (*stake.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.books[owner]; ok {
		return b.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", factor.ErrStakeBookNotFound, owner)
}

func (s *Store) SaveStakeBook(_ context.Context, book *stake.Book, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return factor.ErrStoreClosed
	}

	cur, exists := s.books[book.Owner]
	switch {
	case expectedVersion == 0 && exists:
		return fmt.Errorf("%w: stake book %s already exists", factor.ErrConcurrentUpdate, book.Owner)
	case expectedVersion != 0 && !exists:
		return fmt.Errorf("%w: %s", factor.ErrStakeBookNotFound, book.Owner)
	case exists && cur.Version != expectedVersion:
		return fmt.Errorf("%w: stake book %s at version %d, expected %d",
			factor.ErrConcurrentUpdate, book.Owner, cur.Version, expectedVersion)
	}

	book.Version = expectedVersion + 1
	s.books[book.Owner] = book.Clone()
	return nil
}

func (s *Store) ListStakeBooks(_ context.Context) ([]*stake.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]string, 0, len(s.books))
	for o := range s.books {
		owners = append(owners, o)
	}
	sort.Strings(owners)

	result := make([]*stake.Book, 0, len(owners))
	for _, o := range owners {
		result = append(result, s.books[o].Clone())
	}
	return result, nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return factor.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
