// Package audithook bridges factor lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/plugin"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/yield"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnInvoiceCreated   = (*Extension)(nil)
	_ plugin.OnInvoiceOpened    = (*Extension)(nil)
	_ plugin.OnInvoiceSettled   = (*Extension)(nil)
	_ plugin.OnStakeDeposited   = (*Extension)(nil)
	_ plugin.OnStakeWithdrawn   = (*Extension)(nil)
	_ plugin.OnYieldDistributed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly. Callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges factor lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (e *Extension) OnInvoiceCreated(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryFinancing, nil,
		"creator", inv.Creator,
		"nft_id", inv.NFTID.String(),
		"face_amount", inv.FaceAmount.String(),
		"offer_amount", inv.OfferAmount.String(),
		"discount_rate", inv.DiscountRate.String(),
		"deadline", inv.Deadline,
	)
}

// OnInvoiceOpened implements plugin.OnInvoiceOpened.
func (e *Extension) OnInvoiceOpened(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceOpened, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryFinancing, nil,
		"nft_id", inv.NFTID.String(),
	)
}

// OnInvoiceSettled implements plugin.OnInvoiceSettled. Settlement after the
// deadline is recorded as a warning.
func (e *Extension) OnInvoiceSettled(ctx context.Context, s *invoice.Settlement) error {
	severity := SeverityInfo
	if !s.Early {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionInvoiceSettled, severity, OutcomeSuccess,
		ResourceInvoice, s.Invoice.ID.String(), CategoryPayment, nil,
		"early", s.Early,
		"amount_due", s.AmountDue.String(),
		"cashback", s.Cashback.String(),
		"yield_pool", s.YieldPool.String(),
		"payment_method", s.Invoice.PaymentMethod,
	)
}

// ──────────────────────────────────────────────────
// Staking lifecycle hooks
// ──────────────────────────────────────────────────

// OnStakeDeposited implements plugin.OnStakeDeposited.
func (e *Extension) OnStakeDeposited(ctx context.Context, pos *stake.Position) error {
	return e.record(ctx, ActionStakeDeposited, SeverityInfo, OutcomeSuccess,
		ResourceStake, pos.ID.String(), CategoryStaking, nil,
		"owner", pos.Owner,
		"amount", pos.Amount.String(),
		"duration_days", pos.DurationDays,
		"apr_bps", pos.APRBasisPoints,
	)
}

// OnStakeWithdrawn implements plugin.OnStakeWithdrawn. Withdrawals that paid
// an early withdrawal penalty are recorded as warnings.
func (e *Extension) OnStakeWithdrawn(ctx context.Context, w *stake.Withdrawal) error {
	severity := SeverityInfo
	if w.Penalty.IsPositive() {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionStakeWithdrawn, severity, OutcomeSuccess,
		ResourceWithdrawal, w.ID.String(), CategoryStaking, nil,
		"owner", w.Owner,
		"requested", w.Requested.String(),
		"penalty", w.Penalty.String(),
		"paid_out", w.PaidOut.String(),
		"positions", len(w.Allocations),
	)
}

// ──────────────────────────────────────────────────
// Yield hooks
// ──────────────────────────────────────────────────

// OnYieldDistributed implements plugin.OnYieldDistributed. A pool with no
// stakers to receive it is recorded as a partial outcome.
func (e *Extension) OnYieldDistributed(ctx context.Context, d *yield.Distribution) error {
	outcome := OutcomeSuccess
	if len(d.Shares) == 0 && d.Pool.IsPositive() {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionYieldDistributed, SeverityInfo, outcome,
		ResourceDistribution, d.ID.String(), CategoryYield, nil,
		"invoice_id", d.InvoiceID.String(),
		"pool", d.Pool.String(),
		"total_stake", d.TotalStake.String(),
		"distributed", d.Distributed.String(),
		"residual", d.Residual.String(),
		"recipients", len(d.Shares),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
