// Command pfa runs the analytics engine against a local or configured store
// and prints the results as terminal tables.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/castlemilk/pfinance/analytics/internal/app"
	"github.com/castlemilk/pfinance/analytics/internal/config"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/spf13/cobra"
)

var errMissingUser = errors.New("--user is required")

var (
	flagConfig  string
	flagDB      string
	flagUser    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:          "pfa",
	Short:        "Personal finance analytics",
	Long:         "Forecast balances, flag unusual spending, find recurring payments and project goals and debts.",
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".pfa", "pfa.db")

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML config file (defaults to $PFA_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", defaultDB, "SQLite database used when the config selects the memory store")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User ID")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log engine activity to stderr")
}

// loadApp builds the engine from configuration. The CLI persists to SQLite
// unless a durable store is configured.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Driver == config.StoreMemory {
		cfg.Store.Driver = config.StoreSQLite
		cfg.Store.DSN = flagDB
	}
	// The in-process cache does not outlive a single command.
	if cfg.Cache.Driver == config.CacheMemory {
		cfg.Cache.Driver = config.CacheNone
	}

	opts := logging.Options{Level: "warn", Format: "text"}
	if flagVerbose {
		opts.Level = "debug"
	}
	return app.New(ctx, cfg, logging.New(opts))
}

func requireUser() error {
	if flagUser == "" {
		return errMissingUser
	}
	return nil
}
