package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/castlemilk/pfinance/analytics/internal/cli"
	"github.com/castlemilk/pfinance/analytics/internal/importer"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/spf13/cobra"
)

type importFunc func(ctx context.Context, st store.Store, userID string, r io.Reader) (importer.Result, error)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import records from CSV files",
}

func init() {
	for _, sub := range []struct {
		use, short string
		fn         importFunc
	}{
		{"transactions <file.csv>", "Import transactions (date,kind,amount,category[,account_id,description])", importer.Transactions},
		{"goals <file.csv>", "Import savings goals (title,target_amount[,current_amount])", importer.Goals},
		{"debts <file.csv>", "Import debts (name,remaining_amount[,total_amount,interest_rate,minimum_payment])", importer.Debts},
	} {
		fn := sub.fn
		importCmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runImport(cmd.Context(), args[0], fn)
			},
		})
	}
	rootCmd.AddCommand(importCmd)
}

func runImport(ctx context.Context, path string, fn importFunc) error {
	if err := requireUser(); err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := ensureUser(ctx, a.Store, flagUser); err != nil {
		return err
	}

	res, err := fn(ctx, a.Store, flagUser, file)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("IMPORT  " + path))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"", "Rows"},
		Rows: [][]string{
			{"Imported", cli.FormatCount(res.Imported)},
			{"Skipped", cli.FormatCount(res.Skipped)},
		},
	}))
	for _, msg := range res.Errors {
		fmt.Println(cli.RenderNote(msg, true))
	}
	return nil
}

// ensureUser creates the user on first import.
func ensureUser(ctx context.Context, st store.Store, userID string) error {
	_, err := st.GetUser(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if err := st.CreateUser(ctx, &model.User{ID: userID}); err != nil {
		return fmt.Errorf("failed to create user %s: %w", userID, err)
	}
	return nil
}
