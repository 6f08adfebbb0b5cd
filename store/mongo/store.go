package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	factorstore "github.com/xraph/factor/store"
)

// Collection name constants.
const (
	colInvoices   = "factor_invoices"
	colStakeBooks = "factor_stake_books"
)

// compile-time interface check
var _ factorstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all factor collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: factor/mongo: %s indexes: %w", factor.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: invoice %s", factor.ErrAlreadyExists, inv.ID)
		}
		return fmt.Errorf("factor/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", factor.ErrInvoiceNotFound, invID)
		}
		return nil, fmt.Errorf("factor/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Creator != "" {
		filter["creator"] = opts.Creator
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("factor/mongo: list invoices: %w", err)
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

// UpdateInvoiceIfStatus writes the lifecycle fields of inv only while the
// stored document is still in the expected status.
func (s *Store) UpdateInvoiceIfStatus(ctx context.Context, inv *invoice.Invoice, expected invoice.Status) error {
	m := toInvoiceModel(inv)
	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{"_id": m.ID, "status": string(expected)}).
		Set("status", m.Status).
		Set("minted_at", m.MintedAt).
		Set("paid_at", m.PaidAt).
		Set("cashback_cents", m.CashbackCents).
		Set("amount_paid_cents", m.AmountPaidCents).
		Set("payment_method", m.PaymentMethod).
		Set("updated_at", m.UpdatedAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("factor/mongo: update invoice: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}

	cur, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: invoice %s is %s", factor.ErrInvalidTransition, inv.ID, cur.Status)
}

// ==================== Stake Store ====================

func (s *Store) GetStakeBook(ctx context.Context, owner string) (*stake.Book, error) {
	var m stakeBookModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": owner}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", factor.ErrStakeBookNotFound, owner)
		}
		return nil, fmt.Errorf("factor/mongo: get stake book: %w", err)
	}
	return fromStakeBookModel(&m)
}

// SaveStakeBook replaces the stored book when its version still equals
// expectedVersion. Version zero inserts a new book.
func (s *Store) SaveStakeBook(ctx context.Context, book *stake.Book, expectedVersion int64) error {
	m := toStakeBookModel(book, expectedVersion+1)
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now()
	}

	if expectedVersion == 0 {
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: stake book %s already exists", factor.ErrConcurrentUpdate, book.Owner)
			}
			return fmt.Errorf("factor/mongo: insert stake book: %w", err)
		}
		book.Version = m.Version
		return nil
	}

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Owner, "version": expectedVersion}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("factor/mongo: update stake book: %w", err)
	}
	if res.MatchedCount() == 0 {
		cur, err := s.GetStakeBook(ctx, book.Owner)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: stake book %s at version %d, expected %d",
			factor.ErrConcurrentUpdate, book.Owner, cur.Version, expectedVersion)
	}

	book.Version = m.Version
	return nil
}

func (s *Store) ListStakeBooks(ctx context.Context) ([]*stake.Book, error) {
	var models []stakeBookModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("factor/mongo: list stake books: %w", err)
	}

	result := make([]*stake.Book, len(models))
	for i := range models {
		b, err := fromStakeBookModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all factor collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInvoices: {
			{
				Keys:    bson.D{{Key: "nft_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
			{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colStakeBooks: {
			{Keys: bson.D{{Key: "_id", Value: 1}, {Key: "version", Value: 1}}},
		},
	}
}
