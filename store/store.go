// Package store defines the unified persistence interface every factor
// backend implements.
package store

import (
	"context"

	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
)

// Store is the unified storage interface for all factor entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	UpdateInvoiceIfStatus(ctx context.Context, inv *invoice.Invoice, expected invoice.Status) error

	// Stake methods
	GetStakeBook(ctx context.Context, owner string) (*stake.Book, error)
	SaveStakeBook(ctx context.Context, book *stake.Book, expectedVersion int64) error
	ListStakeBooks(ctx context.Context) ([]*stake.Book, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Invoices narrows s to the invoice.Store the invoice ledger depends on.
func Invoices(s Store) invoice.Store { return invoiceStore{s} }

// Stakes narrows s to the stake.Store the stake pool depends on.
func Stakes(s Store) stake.Store { return stakeStore{s} }

type invoiceStore struct{ s Store }

func (a invoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	return a.s.CreateInvoice(ctx, inv)
}

func (a invoiceStore) Get(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return a.s.GetInvoice(ctx, invID)
}

func (a invoiceStore) List(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return a.s.ListInvoices(ctx, opts)
}

func (a invoiceStore) UpdateIfStatus(ctx context.Context, inv *invoice.Invoice, expected invoice.Status) error {
	return a.s.UpdateInvoiceIfStatus(ctx, inv, expected)
}

type stakeStore struct{ s Store }

func (a stakeStore) GetBook(ctx context.Context, owner string) (*stake.Book, error) {
	return a.s.GetStakeBook(ctx, owner)
}

func (a stakeStore) SaveBook(ctx context.Context, book *stake.Book, expectedVersion int64) error {
	return a.s.SaveStakeBook(ctx, book, expectedVersion)
}

func (a stakeStore) ListBooks(ctx context.Context) ([]*stake.Book, error) {
	return a.s.ListStakeBooks(ctx)
}
