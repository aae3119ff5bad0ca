package main

import (
	"fmt"

	"github.com/castlemilk/pfinance/analytics/internal/cli"
	"github.com/spf13/cobra"
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Flag unusual transactions",
}

var anomaliesRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Score expenses and store new anomalies",
	RunE:  runAnomaliesRun,
}

var anomaliesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored anomalies",
	RunE:  runAnomaliesList,
}

func init() {
	anomaliesCmd.AddCommand(anomaliesRunCmd, anomaliesListCmd)
	rootCmd.AddCommand(anomaliesCmd)
}

func runAnomaliesRun(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.Engine.DetectAnomalies(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderAnomalies("New anomalies", created))
	return nil
}

func runAnomaliesList(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	anomalies, err := a.Engine.ListAnomalies(cmd.Context(), flagUser)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(cli.RenderAnomalies("Anomalies", anomalies))
	return nil
}
