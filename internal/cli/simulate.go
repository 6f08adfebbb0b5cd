package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/xraph/factor"
	"github.com/xraph/factor/clock"
	"github.com/xraph/factor/invoice"
	"github.com/xraph/factor/pricing"
	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/store/memory"
	"github.com/xraph/factor/types"
	"github.com/xraph/factor/yield"
)

// stakeFlag is one --stake flag: owner=amount:days.
type stakeFlag struct {
	Owner  string
	Amount types.Money
	Days   int
}

func parseStakeFlag(s string) (stakeFlag, error) {
	owner, rest, ok := strings.Cut(s, "=")
	if !ok || owner == "" {
		return stakeFlag{}, fmt.Errorf("stake %q: want owner=amount:days", s)
	}
	amount, days, ok := strings.Cut(rest, ":")
	if !ok {
		days = "30"
		amount = rest
	}
	m, err := types.Parse(amount, types.DefaultCurrency)
	if err != nil {
		return stakeFlag{}, fmt.Errorf("stake %q: %w", s, err)
	}
	d, err := strconv.Atoi(days)
	if err != nil {
		return stakeFlag{}, fmt.Errorf("stake %q: days: %w", s, err)
	}
	return stakeFlag{Owner: owner, Amount: m, Days: d}, nil
}

type simulation struct {
	Stakes       []*stake.Position   `json:"stakes"`
	Invoice      *invoice.Invoice    `json:"invoice"`
	Settlement   *invoice.Settlement `json:"settlement"`
	Distribution *yield.Distribution `json:"distribution"`
	Balances     []*factor.Balance   `json:"balances"`
}

func newSimulateCmd(g *globals) *cobra.Command {
	var (
		face       string
		days       int
		settleDay  int
		earlyPct   string
		stakeFlags []string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one invoice through its lifecycle against staked liquidity",
		Long: "simulate deposits the given stakes, creates and opens an invoice, advances " +
			"the clock to the settlement day and settles it, then prints the yield split.",
		Example: "  factorctl simulate --face 5000 --days 30 --settle-day 10 --stake alice=3000:30 --stake bob=7000:90",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := g.policy()
			if err != nil {
				return err
			}
			now, err := g.clockNow()
			if err != nil {
				return err
			}
			amount, err := types.Parse(face, types.DefaultCurrency)
			if err != nil {
				return err
			}
			discount, err := decimal.NewFromString(earlyPct)
			if err != nil {
				return fmt.Errorf("--early-discount: %w", err)
			}
			stakes := make([]stakeFlag, 0, len(stakeFlags))
			for _, f := range stakeFlags {
				sf, err := parseStakeFlag(f)
				if err != nil {
					return err
				}
				stakes = append(stakes, sf)
			}

			clk := clock.NewFake(now)
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			eng := factor.New(memory.New(),
				factor.WithClock(clk),
				factor.WithLogger(logger),
				factor.WithPricingPolicy(policy),
			)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := eng.Start(ctx); err != nil {
				return err
			}
			defer eng.Stop() //nolint:errcheck // memory store

			result, err := runSimulation(ctx, eng, clk, stakes, invoice.Draft{
				Creator:                 "simulation",
				FaceAmount:              amount,
				Deadline:                now.Add(time.Duration(days) * pricing.Day),
				EarlyPaymentDiscountPct: discount,
			}, settleDay)
			if err != nil {
				return err
			}

			if g.jsonOut {
				return writeJSON(cmd, result)
			}
			printSimulation(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&face, "face", "5000", "invoice face amount in major units")
	cmd.Flags().IntVar(&days, "days", 30, "days until the payment deadline")
	cmd.Flags().IntVar(&settleDay, "settle-day", 10, "day on which the invoice is paid")
	cmd.Flags().StringVar(&earlyPct, "early-discount", "0", "creator's early payment discount percent")
	cmd.Flags().StringArrayVar(&stakeFlags, "stake", nil, "stake as owner=amount:days (repeatable)")
	return cmd
}

func runSimulation(ctx context.Context, eng *factor.Engine, clk *clock.Fake, stakes []stakeFlag, draft invoice.Draft, settleDay int) (*simulation, error) {
	result := &simulation{}
	for _, s := range stakes {
		pos, err := eng.Deposit(ctx, s.Owner, s.Amount, s.Days)
		if err != nil {
			return nil, fmt.Errorf("deposit for %s: %w", s.Owner, err)
		}
		result.Stakes = append(result.Stakes, pos)
	}

	inv, err := eng.CreateInvoice(ctx, draft)
	if err != nil {
		return nil, err
	}
	if inv, err = eng.ConfirmMinted(ctx, inv.ID); err != nil {
		return nil, err
	}

	clk.AdvanceDays(settleDay)
	settlement, dist, err := eng.SettleInvoice(ctx, inv.ID, "simulation")
	if err != nil {
		return nil, err
	}
	result.Invoice = settlement.Invoice
	result.Settlement = settlement
	result.Distribution = dist

	seen := make(map[string]bool, len(stakes))
	for _, s := range stakes {
		if seen[s.Owner] {
			continue
		}
		seen[s.Owner] = true
		bal, err := eng.StakeBalance(ctx, s.Owner)
		if err != nil {
			return nil, err
		}
		result.Balances = append(result.Balances, bal)
	}
	return result, nil
}

func printSimulation(cmd *cobra.Command, r *simulation) {
	out := cmd.OutOrStdout()
	inv := r.Invoice
	fmt.Fprintf(out, "invoice %s\n", inv.ID)
	fmt.Fprintf(out, "  face:       %s\n", inv.FaceAmount)
	fmt.Fprintf(out, "  offer:      %s (discount %s%%)\n", inv.OfferAmount, inv.DiscountRate.Shift(2).StringFixed(2))
	fmt.Fprintf(out, "  status:     %s\n", inv.Status)
	fmt.Fprintf(out, "settlement\n")
	fmt.Fprintf(out, "  early:      %t\n", r.Settlement.Early)
	fmt.Fprintf(out, "  amount due: %s\n", r.Settlement.AmountDue)
	fmt.Fprintf(out, "  cashback:   %s\n", r.Settlement.Cashback)
	fmt.Fprintf(out, "  yield pool: %s\n", r.Settlement.YieldPool)
	fmt.Fprintf(out, "distribution\n")
	for _, sh := range r.Distribution.Shares {
		fmt.Fprintf(out, "  %-10s %s (stake %s)\n", sh.Owner, sh.Amount, sh.Stake)
	}
	fmt.Fprintf(out, "  residual:   %s\n", r.Distribution.Residual)
	for _, b := range r.Balances {
		fmt.Fprintf(out, "balance %s: staked %s, accrued %s\n", b.Owner, b.Staked, b.Accrued)
	}
}
