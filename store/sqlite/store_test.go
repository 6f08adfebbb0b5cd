package sqlite_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/factor"
	"github.com/xraph/factor/clock"
	"github.com/xraph/factor/id"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/store/sqlite"
	"github.com/xraph/factor/types"
)

var start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

// openStore returns a migrated store over a private in-memory database.
func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sdb := sqlitedriver.New()
	require.NoError(t, sdb.Open(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", name), driver.WithPoolSize(1)))
	db, err := grove.Open(sdb)
	require.NoError(t, err)

	s := sqlite.New(db)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newEngine(t *testing.T) (*factor.Engine, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(start)
	e := factor.New(openStore(t),
		factor.WithClock(clk),
		factor.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	require.NoError(t, e.Start(context.Background()))
	return e, clk
}

func openInvoice(t *testing.T, e *factor.Engine) *invoice.Invoice {
	t.Helper()
	ctx := context.Background()
	inv, err := e.CreateInvoice(ctx, invoice.Draft{
		Creator:    "acme",
		FaceAmount: types.USDC(500000),
		Deadline:   start.Add(days(30)),
		Metadata:   map[string]string{"po": "42"},
	})
	require.NoError(t, err)
	inv, err = e.ConfirmMinted(ctx, inv.ID)
	require.NoError(t, err)
	return inv
}

func TestMigrateTwice(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine(t)

	_, err := e.Deposit(ctx, "alice", types.USDC(300000), 30)
	require.NoError(t, err)
	_, err = e.Deposit(ctx, "bob", types.USDC(700000), 90)
	require.NoError(t, err)

	inv := openInvoice(t, e)
	assert.Equal(t, invoice.StatusOpen, inv.Status)
	require.NotNil(t, inv.MintedAt)

	payable, err := e.ListPayableInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, payable, 1)
	assert.Equal(t, inv.ID, payable[0].ID)

	clk.AdvanceDays(10)
	s, dist, err := e.SettleInvoice(ctx, inv.ID, "wallet")
	require.NoError(t, err)
	assert.True(t, s.Early)
	assert.Equal(t, int64(4500), dist.ShareOf("alice").Amount)
	assert.Equal(t, int64(10500), dist.ShareOf("bob").Amount)

	got, err := e.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusDone, got.Status)
	assert.Equal(t, int64(475000), got.OfferAmount.Amount)
	assert.True(t, got.Deadline.Equal(start.Add(days(30))))
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(start.Add(days(10))))
	require.NotNil(t, got.Cashback)
	assert.Equal(t, int64(15000), got.Cashback.Amount)
	assert.Equal(t, "wallet", got.PaymentMethod)
	assert.Equal(t, "42", got.Metadata["po"])

	done, err := e.ListInvoices(ctx, invoice.ListOpts{Status: invoice.StatusDone})
	require.NoError(t, err)
	assert.Len(t, done, 1)

	counts, err := e.CountInvoicesByStatus(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[invoice.StatusDone])
}

func TestConfirmMintedTwice(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	inv := openInvoice(t, e)
	_, err := e.ConfirmMinted(ctx, inv.ID)
	assert.ErrorIs(t, err, factor.ErrInvalidTransition)

	_, err = e.ConfirmMinted(ctx, id.NewInvoiceID())
	assert.ErrorIs(t, err, factor.ErrInvoiceNotFound)
}

func TestSettleConcurrentExactlyOnce(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	inv := openInvoice(t, e)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		settled  int
		rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.SettleInvoice(ctx, inv.ID, "wallet")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				settled++
			case factor.IsRetryable(err):
				t.Errorf("unexpected retryable error: %v", err)
			default:
				assert.ErrorIs(t, err, factor.ErrInvalidTransition)
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	assert.Equal(t, n-1, rejected)
}

func TestStakeBookVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.GetStakeBook(ctx, "alice")
	assert.ErrorIs(t, err, factor.ErrStakeBookNotFound)

	tenor, ok := stake.LookupTenor(30)
	require.True(t, ok)

	book := stake.NewBook("alice")
	book.Positions = append(book.Positions, stake.NewPosition("alice", types.USDC(1000), tenor, start))
	book.UpdatedAt = start
	require.NoError(t, s.SaveStakeBook(ctx, book, 0))
	assert.Equal(t, int64(1), book.Version)

	// A second writer that also believed the book was new loses.
	rival := stake.NewBook("alice")
	assert.ErrorIs(t, s.SaveStakeBook(ctx, rival, 0), factor.ErrConcurrentUpdate)

	stale, err := s.GetStakeBook(ctx, "alice")
	require.NoError(t, err)
	fresh, err := s.GetStakeBook(ctx, "alice")
	require.NoError(t, err)

	fresh.Positions = append(fresh.Positions, stake.NewPosition("alice", types.USDC(2000), tenor, start))
	require.NoError(t, s.SaveStakeBook(ctx, fresh, fresh.Version))
	assert.Equal(t, int64(2), fresh.Version)

	err = s.SaveStakeBook(ctx, stale, stale.Version)
	assert.ErrorIs(t, err, factor.ErrConcurrentUpdate)
	assert.True(t, factor.IsRetryable(err))

	got, err := s.GetStakeBook(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got.Positions, 2)
	assert.Equal(t, int64(2), got.Version)

	books, err := s.ListStakeBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestWithdrawPersistsBook(t *testing.T) {
	ctx := context.Background()
	e, clk := newEngine(t)

	_, err := e.Deposit(ctx, "alice", types.USDC(100000), 30)
	require.NoError(t, err)
	_, err = e.Deposit(ctx, "alice", types.USDC(100000), 60)
	require.NoError(t, err)

	clk.AdvanceDays(31)
	w, err := e.Withdraw(ctx, "alice", types.USDC(150000))
	require.NoError(t, err)
	// 1000.00 from the matured 30-day position, 500.00 early from the other.
	assert.Equal(t, int64(5000), w.Penalty.Amount)
	assert.Equal(t, int64(145000), w.PaidOut.Amount)

	bal, err := e.StakeBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), bal.Staked.Amount)
}
