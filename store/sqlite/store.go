package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	factorstore "github.com/xraph/factor/store"
)

// compile-time interface check
var _ factorstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	rows, err := affected(s.sdb.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx))
	if err != nil {
		return fmt.Errorf("factor/sqlite: create invoice: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: invoice %s", factor.ErrAlreadyExists, inv.ID)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.sdb.NewSelect(m).Where("id = ?", invID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", factor.ErrInvoiceNotFound, invID)
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.sdb.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Creator != "" {
		q = q.Where("creator = ?", opts.Creator)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// UpdateInvoiceIfStatus writes the lifecycle columns of inv only while the
// stored row is still in the expected status.
func (s *Store) UpdateInvoiceIfStatus(ctx context.Context, inv *invoice.Invoice, expected invoice.Status) error {
	m := toInvoiceModel(inv)
	rows, err := affected(s.sdb.NewUpdate((*invoiceModel)(nil)).
		Set("status = ?", m.Status).
		Set("minted_at = ?", m.MintedAt).
		Set("paid_at = ?", m.PaidAt).
		Set("cashback_cents = ?", m.CashbackCents).
		Set("amount_paid_cents = ?", m.AmountPaidCents).
		Set("payment_method = ?", m.PaymentMethod).
		Set("updated_at = ?", m.UpdatedAt).
		Where("id = ?", m.ID).
		Where("status = ?", string(expected)).
		Exec(ctx))
	if err != nil {
		return err
	}
	if rows > 0 {
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
	m := new(stakeBookModel)
	err := s.sdb.NewSelect(m).Where("owner = ?", owner).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", factor.ErrStakeBookNotFound, owner)
		}
		return nil, err
	}
	return fromStakeBookModel(m)
}

// SaveStakeBook persists book when the stored version still equals
// expectedVersion. Version zero inserts a new book.
func (s *Store) SaveStakeBook(ctx context.Context, book *stake.Book, expectedVersion int64) error {
	m, err := toStakeBookModel(book, expectedVersion+1)
	if err != nil {
		return fmt.Errorf("factor/sqlite: encode stake book: %w", err)
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now()
	}

	var rows int64
	if expectedVersion == 0 {
		rows, err = affected(s.sdb.NewInsert(m).
			OnConflict("(owner) DO NOTHING").
			Exec(ctx))
	} else {
		rows, err = affected(s.sdb.NewUpdate((*stakeBookModel)(nil)).
			Set("positions = ?", m.Positions).
			Set("withdrawals = ?", m.Withdrawals).
			Set("version = ?", m.Version).
			Set("updated_at = ?", m.UpdatedAt).
			Where("owner = ?", m.Owner).
			Where("version = ?", expectedVersion).
			Exec(ctx))
	}
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.versionConflict(ctx, book.Owner, expectedVersion)
	}

	book.Version = m.Version
	return nil
}

func (s *Store) versionConflict(ctx context.Context, owner string, expectedVersion int64) error {
	cur, err := s.GetStakeBook(ctx, owner)
	switch {
	case err != nil && expectedVersion == 0 && errors.Is(err, factor.ErrStakeBookNotFound):
		return fmt.Errorf("%w: stake book %s", factor.ErrConcurrentUpdate, owner)
	case err != nil:
		return err
	case expectedVersion == 0:
		return fmt.Errorf("%w: stake book %s already exists", factor.ErrConcurrentUpdate, owner)
	default:
		return fmt.Errorf("%w: stake book %s at version %d, expected %d",
			factor.ErrConcurrentUpdate, owner, cur.Version, expectedVersion)
	}
}

func (s *Store) ListStakeBooks(ctx context.Context) ([]*stake.Book, error) {
	var models []stakeBookModel
	if err := s.sdb.NewSelect(&models).OrderExpr("owner ASC").Scan(ctx); err != nil {
		return nil, err
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

// ==================== Core ====================

// Migrate runs the factor migration group against SQLite.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("factor/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: factor/sqlite: %w", factor.ErrMigrationFailed, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func now() time.Time {
	return time.Now().UTC()
}

type rowsResult interface {
	RowsAffected() (int64, error)
}

func affected(res rowsResult, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
