package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the factor store.
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
    tax_rate_pct               INT NOT NULL DEFAULT 0,
    is_recurring               BOOLEAN NOT NULL DEFAULT FALSE,
    esg                        BOOLEAN NOT NULL DEFAULT FALSE,
    currency                   TEXT NOT NULL DEFAULT 'usdc',
    face_amount_cents          BIGINT NOT NULL,
    offer_amount_cents         BIGINT NOT NULL,
    discount_rate              TEXT NOT NULL DEFAULT '0',
    expected_return_cents      BIGINT NOT NULL DEFAULT 0,
    deadline                   TIMESTAMPTZ NOT NULL,
    early_payment_discount_pct TEXT NOT NULL DEFAULT '0',
    status                     TEXT NOT NULL DEFAULT 'pending',
    minted_at                  TIMESTAMPTZ,
    paid_at                    TIMESTAMPTZ,
    cashback_cents             BIGINT,
    amount_paid_cents          BIGINT,
    payment_method             TEXT NOT NULL DEFAULT '',
    metadata                   JSONB NOT NULL DEFAULT '{}',
    created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    positions   JSONB NOT NULL DEFAULT '[]',
    withdrawals JSONB NOT NULL DEFAULT '[]',
    version     BIGINT NOT NULL DEFAULT 1,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
