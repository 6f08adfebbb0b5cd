// Package cli implements the factorctl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xraph/factor/extension"
	"github.com/xraph/factor/pricing"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	policyFile string
	jsonOut    bool
	now        string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "factorctl",
		Short:         "Price invoices and simulate staking yield",
		Long:          "factorctl quotes invoice advances, lists staking tenors and simulates an invoice lifecycle against an in-memory engine.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.policyFile, "policy", "", "pricing policy YAML file")
	cmd.PersistentFlags().BoolVar(&g.jsonOut, "json", false, "print JSON")
	cmd.PersistentFlags().StringVar(&g.now, "now", "", "evaluation time (RFC 3339), defaults to the current time")
	_ = cmd.PersistentFlags().MarkHidden("now") //nolint:errcheck // flag exists

	cmd.AddCommand(newQuoteCmd(g))
	cmd.AddCommand(newTenorsCmd(g))
	cmd.AddCommand(newSimulateCmd(g))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

// policy loads the pricing policy named by --policy, or the default policy.
func (g *globals) policy() (pricing.Policy, error) {
	if g.policyFile == "" {
		return pricing.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(g.policyFile)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("reading policy: %w", err)
	}
	var cfg extension.PricingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return pricing.Policy{}, fmt.Errorf("parsing policy %s: %w", g.policyFile, err)
	}
	return cfg.Policy()
}

func (g *globals) clockNow() (time.Time, error) {
	if g.now == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, g.now)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return t.UTC(), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
