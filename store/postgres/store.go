package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/factor"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	factorstore "github.com/xraph/factor/store"
)

// compile-time interface check
var _ factorstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	rows, err := affected(s.pg.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx))
	if err != nil {
		return fmt.Errorf("factor/postgres: create invoice: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: invoice %s", factor.ErrAlreadyExists, inv.ID)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).Where("id = $1", invID.String()).Scan(ctx)
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Creator != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("creator = $%d", argIdx), opts.Creator)
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
	res, err := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("status = $1", m.Status).
		Set("minted_at = $2", m.MintedAt).
		Set("paid_at = $3", m.PaidAt).
		Set("cashback_cents = $4", m.CashbackCents).
		Set("amount_paid_cents = $5", m.AmountPaidCents).
		Set("payment_method = $6", m.PaymentMethod).
		Set("updated_at = $7", m.UpdatedAt).
		Where("id = $8", m.ID).
		Where("status = $9", string(expected)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
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
	err := s.pg.NewSelect(m).Where("owner = $1", owner).Scan(ctx)
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
		return fmt.Errorf("factor/postgres: encode stake book: %w", err)
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now()
	}

	var rows int64
	if expectedVersion == 0 {
		rows, err = affected(s.pg.NewInsert(m).
			OnConflict("(owner) DO NOTHING").
			Exec(ctx))
	} else {
		rows, err = affected(s.pg.NewUpdate((*stakeBookModel)(nil)).
			Set("positions = $1", m.Positions).
			Set("withdrawals = $2", m.Withdrawals).
			Set("version = $3", m.Version).
			Set("updated_at = $4", m.UpdatedAt).
			Where("owner = $5", m.Owner).
			Where("version = $6", expectedVersion).
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
	if err := s.pg.NewSelect(&models).OrderExpr("owner ASC").Scan(ctx); err != nil {
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

// Migrate runs the factor migration group against PostgreSQL.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("factor/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: factor/postgres: %w", factor.ErrMigrationFailed, err)
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
