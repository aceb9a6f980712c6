package cli

import (
	"github.com/spf13/cobra"

	"github.com/opensource-finance/underwrite/internal/domain"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a prefi/plaid document pair",
		Args:  cobra.NoArgs,
		RunE:  runScore,
	}
	cmd.Flags().String("prefi", "", "Path to the prefi JSON document")
	cmd.Flags().String("plaid", "", "Path to the plaid JSON document")
	_ = cmd.MarkFlagRequired("prefi")
	_ = cmd.MarkFlagRequired("plaid")
	return cmd
}

func newDebitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debits",
		Short: "List outflows, largest first, with their total",
		Args:  cobra.NoArgs,
		RunE:  runDebits,
	}
	cmd.Flags().String("plaid", "", "Path to the plaid JSON document")
	cmd.Flags().Int("limit", 0, "Show only the N largest debits (0 for all)")
	_ = cmd.MarkFlagRequired("plaid")
	return cmd
}

func newPatternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Show recurring income patterns and the heuristic monthly income",
		Args:  cobra.NoArgs,
		RunE:  runPatterns,
	}
	cmd.Flags().String("plaid", "", "Path to the plaid JSON document")
	_ = cmd.MarkFlagRequired("plaid")
	return cmd
}

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Show the per-account income log",
		Args:  cobra.NoArgs,
		RunE:  runAccounts,
	}
	cmd.Flags().String("plaid", "", "Path to the plaid JSON document")
	_ = cmd.MarkFlagRequired("plaid")
	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	prefiPath, _ := cmd.Flags().GetString("prefi")
	plaidPath, _ := cmd.Flags().GetString("plaid")

	prefi, err := readPrefi(prefiPath)
	if err != nil {
		return err
	}
	plaid, err := readPlaid(plaidPath)
	if err != nil {
		return err
	}

	scorer, err := newScorer()
	if err != nil {
		return err
	}
	return writeOutput(cmd, scorer.CalculateScores(cmd.Context(), prefi, plaid))
}

func runDebits(cmd *cobra.Command, args []string) error {
	plaidPath, _ := cmd.Flags().GetString("plaid")
	limit, _ := cmd.Flags().GetInt("limit")

	plaid, err := readPlaid(plaidPath)
	if err != nil {
		return err
	}
	scorer, err := newScorer()
	if err != nil {
		return err
	}

	report := scorer.GetDebitsAndTotal(cmd.Context(), plaid)
	if limit > 0 && len(report.AllDebits) > limit {
		report.AllDebits = report.AllDebits[:limit]
	}
	return writeOutput(cmd, report)
}

type patternsOutput struct {
	Patterns               []domain.RecurringPattern `json:"patterns"`
	HeuristicMonthlyIncome float64                   `json:"heuristicMonthlyIncome"`
}

func runPatterns(cmd *cobra.Command, args []string) error {
	plaidPath, _ := cmd.Flags().GetString("plaid")

	plaid, err := readPlaid(plaidPath)
	if err != nil {
		return err
	}
	scorer, err := newScorer()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	return writeOutput(cmd, patternsOutput{
		Patterns:               scorer.IdentifyRecurringPatterns(ctx, plaid),
		HeuristicMonthlyIncome: scorer.ComputeAverageMonthlyIncome(ctx, plaid),
	})
}

func runAccounts(cmd *cobra.Command, args []string) error {
	plaidPath, _ := cmd.Flags().GetString("plaid")

	plaid, err := readPlaid(plaidPath)
	if err != nil {
		return err
	}
	scorer, err := newScorer()
	if err != nil {
		return err
	}
	return writeOutput(cmd, scorer.GetAccountTransactionLog(cmd.Context(), plaid))
}
