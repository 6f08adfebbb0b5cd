package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/factor/pricing"
	"github.com/xraph/factor/types"
)

func newQuoteCmd(g *globals) *cobra.Command {
	var (
		face     string
		days     int
		deadline string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote the advance offered for an invoice",
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

			due := now.Add(time.Duration(days) * pricing.Day)
			if deadline != "" {
				if due, err = time.Parse(time.DateOnly, deadline); err != nil {
					return fmt.Errorf("--deadline: %w", err)
				}
			}

			q, err := pricing.NewEngine(policy).Quote(amount, due, now)
			if err != nil {
				return err
			}

			if g.jsonOut {
				return writeJSON(cmd, q)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "face:            %s\n", amount)
			fmt.Fprintf(out, "days:            %d\n", q.DaysUntilDeadline)
			fmt.Fprintf(out, "discount rate:   %s%%\n", q.DiscountRate.Shift(2).StringFixed(2))
			fmt.Fprintf(out, "offer:           %s\n", q.OfferAmount)
			fmt.Fprintf(out, "expected return: %s\n", q.ExpectedReturn)
			return nil
		},
	}

	cmd.Flags().StringVar(&face, "face", "", "invoice face amount in major units, e.g. 5000.00")
	cmd.Flags().IntVar(&days, "days", 30, "days until the payment deadline")
	cmd.Flags().StringVar(&deadline, "deadline", "", "payment deadline (YYYY-MM-DD), overrides --days")
	_ = cmd.MarkFlagRequired("face") //nolint:errcheck // flag exists
	return cmd
}
