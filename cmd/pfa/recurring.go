package main

import (
	"fmt"

	"github.com/castlemilk/pfinance/analytics/internal/cli"
	"github.com/spf13/cobra"
)

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Find recurring payments",
}

var recurringRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Mine expenses for recurring patterns",
	RunE:  runRecurringRun,
}

var recurringListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored recurring patterns",
	RunE:  runRecurringList,
}

func init() {
	recurringCmd.AddCommand(recurringRunCmd, recurringListCmd)
	rootCmd.AddCommand(recurringCmd)
}

func runRecurringRun(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	patterns, err := a.Engine.MineRecurringPatterns(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderPatterns("Updated patterns", patterns))
	return nil
}

func runRecurringList(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	patterns, err := a.Engine.ListRecurringPatterns(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderPatterns("Recurring patterns", patterns))
	return nil
}
