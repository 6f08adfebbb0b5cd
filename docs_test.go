package factor_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/factor"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/store/memory"
	"github.com/xraph/factor/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		e := factor.New(store,
			factor.WithLogger(slog.Default()),
		)

		ctx := context.Background()
		if err := e.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer e.Stop()

		// Stakers fund the pool
		if _, err := e.Deposit(ctx, "staker_1", types.USDC(1_000_000), 90); err != nil {
			t.Fatal(err)
		}

		// A creator submits an invoice and receives the offer amount now
		inv, err := e.CreateInvoice(ctx, invoice.Draft{
			Creator:    "acct_42",
			FaceAmount: types.USDC(500_000), // 5000.00 USDC
			Deadline:   time.Now().Add(30 * 24 * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("offer: %s at %s\n", inv.OfferAmount, inv.DiscountRate)

		// The minting collaborator confirms the claim token
		if _, err := e.ConfirmMinted(ctx, inv.ID); err != nil {
			t.Fatal(err)
		}

		// The payer settles; yield flows to stakers
		s, dist, err := e.SettleInvoice(ctx, inv.ID, "usdc-wallet")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("cashback: %s, staker_1 earned %s\n", s.Cashback, dist.ShareOf("staker_1"))
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USDC(4900)   // 49.00 USDC
		_ = types.Zero("usdc") // 0.00 USDC

		// Arithmetic
		m1 := types.USDC(100)
		m2 := types.USDC(200)
		_ = m1.Add(m2)                       // 3.00
		_ = m1.Multiply(3)                   // 3.00
		_ = m1.MulRate(types.Percent(3))     // 0.03
		_ = m1.MulRate(types.BasisPoints(5)) // 0.00

		// Comparison
		if m1.LessThan(m2) {
			// m1 is less than m2
		}

		// Formatting
		_ = m1.String()      // "1.00 USDC"
		_ = m1.FormatMajor() // "1.00"

		// Parsing major units
		if _, err := factor.ParseMoney("4750.25", "usdc"); err != nil {
			t.Fatal(err)
		}
	})
}
