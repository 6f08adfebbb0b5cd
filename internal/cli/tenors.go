package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/factor/stake"
	"github.com/xraph/factor/types"
)

type tenorRow struct {
	Days     int         `json:"days"`
	APR      string      `json:"apr"`
	Interest types.Money `json:"interest_at_maturity"`
	Payout   types.Money `json:"payout_at_maturity"`
}

func newTenorsCmd(g *globals) *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "tenors",
		Short: "List staking durations with their APR and maturity payout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			principal, err := types.Parse(amount, types.DefaultCurrency)
			if err != nil {
				return err
			}

			rows := make([]tenorRow, 0, len(stake.Tenors()))
			for _, t := range stake.Tenors() {
				interest := stake.Interest(principal, t.APRBasisPoints, t.Days)
				rows = append(rows, tenorRow{
					Days:     t.Days,
					APR:      t.APR().Shift(2).StringFixed(2) + "%",
					Interest: interest,
					Payout:   principal.Add(interest),
				})
			}

			if g.jsonOut {
				return writeJSON(cmd, rows)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DAYS\tAPR\tINTEREST\tPAYOUT")
			for _, r := range rows {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Days, r.APR, r.Interest, r.Payout)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "1000", "principal in major units")
	return cmd
}
