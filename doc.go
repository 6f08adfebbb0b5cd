// Package factor provides an invoice financing and staking yield engine for
// Go applications.
//
// Factor is designed as a library, not a service. It turns unpaid invoices
// into claims funded from a pooled stake of stablecoin and pays the yield
// back to the stakers. It provides:
//
//   - Deterministic invoice pricing (discount rate, offer, staker yield)
//   - An exactly-once pending -> open -> done invoice lifecycle
//   - Fixed-tenor stake positions with accrual, maturity and early
//     withdrawal penalties
//   - Proportional yield distribution across active stake
//   - Lifecycle events for notifiers, audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/factor"
//	    "github.com/xraph/factor/store/postgres"
//	)
//
//	e := factor.New(pgStore)
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Stop()
//
//	inv, err := e.CreateInvoice(ctx, invoice.Draft{
//	    Creator:    "acct_42",
//	    FaceAmount: types.USDC(500_000),
//	    Deadline:   time.Now().Add(30 * 24 * time.Hour),
//	})
//
// # Pricing
//
// An invoice due in d days (fractions round up) is discounted at
// min(15%, 2% + d * 0.1%). The creator receives the face amount less the
// discount immediately. Separately, stakers are promised 0.1% of face per
// day as the invoice's yield pool.
//
// # Staking
//
// Deposits lock principal for 30, 60, 90 or 180 days at 10%, 11%, 12% or
// 15% APR. Interest accrues daily without compounding. Withdrawals draw
// from the earliest-maturing positions first; any portion taken before
// maturity is charged 10%.
//
// # Money
//
// All amounts are integer cents of a single stable unit (usdc). Rate math
// goes through shopspring/decimal and rounds half-up to the cent, except
// yield shares, which truncate so the shares never exceed the pool.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	inv_01h455vb4pex5vsknk084sn02q  // Invoice
//	nft_01h455vb4pex5vsknk084sn02q  // Claim token
//	stk_01h2xcejqtf2nbrexx3vqjhp41  // Stake position
package factor
