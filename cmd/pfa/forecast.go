package main

import (
	"fmt"

	"github.com/castlemilk/pfinance/analytics/internal/cli"
	"github.com/castlemilk/pfinance/analytics/internal/engine"
	"github.com/spf13/cobra"
)

var (
	flagModel       string
	flagPeriods     int
	flagHorizon     string
	flagGranularity string
	flagTargetDate  string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast income, expense and balance",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().StringVarP(&flagModel, "model", "m", "", "holt, arima, sarima, prophet or gbrt")
	forecastCmd.Flags().IntVarP(&flagPeriods, "periods", "n", 0, "Days to forecast")
	forecastCmd.Flags().StringVar(&flagHorizon, "horizon", "", "week, month or year (used when --periods is not set)")
	forecastCmd.Flags().StringVarP(&flagGranularity, "granularity", "g", "", "daily, weekly or monthly")
	forecastCmd.Flags().StringVar(&flagTargetDate, "target-date", "", "Report the balance on this YYYY-MM-DD date")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	payload, err := a.Engine.Forecast(cmd.Context(), engine.ForecastRequest{
		UserID:      flagUser,
		Model:       flagModel,
		Periods:     flagPeriods,
		Horizon:     flagHorizon,
		Granularity: flagGranularity,
		TargetDate:  flagTargetDate,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(cli.RenderForecast(payload))
	return nil
}
