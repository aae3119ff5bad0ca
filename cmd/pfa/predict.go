package main

import (
	"fmt"

	"github.com/castlemilk/pfinance/analytics/internal/cli"
	"github.com/spf13/cobra"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Project completion dates for savings goals",
	RunE:  runGoals,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Month-level predictions",
}

var predictNextMonthCmd = &cobra.Command{
	Use:   "next-month",
	Short: "Predict next month's income, expense and balance",
	RunE:  runPredictNextMonth,
}

var predictSalaryCmd = &cobra.Command{
	Use:   "salary",
	Short: "Predict next month's income from the monthly trend",
	RunE:  runPredictSalary,
}

var predictDebtCmd = &cobra.Command{
	Use:   "debt",
	Short: "Estimate when outstanding debt is cleared",
	RunE:  runPredictDebt,
}

func init() {
	predictCmd.AddCommand(predictNextMonthCmd, predictSalaryCmd, predictDebtCmd)
	rootCmd.AddCommand(goalsCmd, predictCmd)
}

func runGoals(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	goals, err := a.Engine.ProjectGoals(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Println("\n  No goals found.")
		return nil
	}
	fmt.Println()
	fmt.Print(cli.RenderGoals(goals))
	return nil
}

func runPredictNextMonth(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Engine.PredictNextMonth(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderNextMonth(p))
	return nil
}

func runPredictSalary(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Engine.PredictSalary(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderSalary(p))
	return nil
}

func runPredictDebt(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.Engine.PredictDebtPayoff(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderDebtPayoff(p))
	return nil
}
