package factor

import (
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/pricing"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
	"github.com/xraph/factor/yield"
)

// Re-export common types for convenience so users don't have to import the
// entity packages for everyday calls.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Invoice is re-exported from invoice package.
type Invoice = invoice.Invoice

// InvoiceDraft is re-exported from invoice package.
type InvoiceDraft = invoice.Draft

// Settlement is re-exported from invoice package.
type Settlement = invoice.Settlement

// Position is re-exported from stake package.
type Position = stake.Position

// Withdrawal is re-exported from stake package.
type Withdrawal = stake.Withdrawal

// Distribution is re-exported from yield package.
type Distribution = yield.Distribution

// Quote is re-exported from pricing package.
type Quote = pricing.Quote

// Re-export Money constructors
var (
	USDC       = types.USDC
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMoney = types.Parse
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
