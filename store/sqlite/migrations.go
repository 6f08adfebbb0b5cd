package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the factor store (SQLite).
var Migrations = migrate.NewGroup("factor")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_factor_invoices",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS factor_invoices (
    id                         TEXT PRIMARY KEY,
    nft_id                     TEXT NOT NULL,
    creator                    TEXT NOT NULL,
    customer_name              TEXT NOT NULL DEFAULT '',
    description                TEXT NOT NULL DEFAULT '',
    country                    TEXT NOT NULL DEFAULT '',
    tax_rate_pct               INTEGER NOT NULL DEFAULT 0,
    is_recurring               INTEGER NOT NULL DEFAULT 0,
    esg                        INTEGER NOT NULL DEFAULT 0,
    currency                   TEXT NOT NULL DEFAULT 'usdc',
    face_amount_cents          INTEGER NOT NULL,
    offer_amount_cents         INTEGER NOT NULL,
    discount_rate              TEXT NOT NULL DEFAULT '0',
    expected_return_cents      INTEGER NOT NULL DEFAULT 0,
    deadline                   DATETIME NOT NULL,
    early_payment_discount_pct TEXT NOT NULL DEFAULT '0',
    status                     TEXT NOT NULL DEFAULT 'pending',
    minted_at                  DATETIME,
    paid_at                    DATETIME,
    cashback_cents             INTEGER,
    amount_paid_cents          INTEGER,
    payment_method             TEXT NOT NULL DEFAULT '',
    metadata                   TEXT NOT NULL DEFAULT '{}',
    created_at                 DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at                 DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_factor_invoices_nft ON factor_invoices (nft_id);
CREATE INDEX IF NOT EXISTS idx_factor_invoices_status ON factor_invoices (status, deadline);
CREATE INDEX IF NOT EXISTS idx_factor_invoices_creator ON factor_invoices (creator, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS factor_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_factor_stake_books",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS factor_stake_books (
    owner       TEXT PRIMARY KEY,
    positions   TEXT NOT NULL DEFAULT '[]',
    withdrawals TEXT NOT NULL DEFAULT '[]',
    version     INTEGER NOT NULL DEFAULT 1,
    updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS factor_stake_books`)
				return err
			},
		},
	)
}
