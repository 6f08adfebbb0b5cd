// Package plugin provides an extensible plugin system for factor.
// Plugins hook into invoice and staking lifecycle events. Every event is
// delivered after the state change it describes has been committed.
package plugin

import (
	"context"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/yield"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated is called when an invoice is priced and stored as pending.
type OnInvoiceCreated interface {
	Plugin
	OnInvoiceCreated(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceOpened is called when minting is confirmed and the invoice opens.
type OnInvoiceOpened interface {
	Plugin
	OnInvoiceOpened(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceSettled is called when a payer settles an invoice.
type OnInvoiceSettled interface {
	Plugin
	OnInvoiceSettled(ctx context.Context, s *invoice.Settlement) error
}

// ──────────────────────────────────────────────────
// Staking hooks
// ──────────────────────────────────────────────────

// OnStakeDeposited is called when a position is opened.
type OnStakeDeposited interface {
	Plugin
	OnStakeDeposited(ctx context.Context, pos *stake.Position) error
}

// OnStakeWithdrawn is called when principal leaves the pool.
type OnStakeWithdrawn interface {
	Plugin
	OnStakeWithdrawn(ctx context.Context, w *stake.Withdrawal) error
}

// ──────────────────────────────────────────────────
// Yield hooks
// ──────────────────────────────────────────────────

// OnYieldDistributed is called with the shares computed for a settled invoice.
type OnYieldDistributed interface {
	Plugin
	OnYieldDistributed(ctx context.Context, d *yield.Distribution) error
}
