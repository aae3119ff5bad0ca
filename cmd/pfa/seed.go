package main

import (
	"fmt"

	"github.com/castlemilk/pfinance/analytics/internal/cli"
	"github.com/castlemilk/pfinance/analytics/internal/demo"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagMonths int
	flagSeed   int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate a demo history for a user",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&flagMonths, "months", 6, "Months of history to generate")
	seedCmd.Flags().Int64Var(&flagSeed, "seed", 42, "Random seed")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := demo.Seed(cmd.Context(), a.Store, flagUser, demo.Options{Months: flagMonths, Seed: flagSeed}, logging.Component(a.Logger, "demo"))
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SEEDED  %s, last %d months", flagUser, flagMonths)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Record", "Created"},
		Rows: [][]string{
			{"Expenses", cli.FormatCount(counts.Expenses)},
			{"Incomes", cli.FormatCount(counts.Incomes)},
			{"Goals", cli.FormatCount(counts.Goals)},
			{"Debts", cli.FormatCount(counts.Debts)},
		},
	}))
	return nil
}
