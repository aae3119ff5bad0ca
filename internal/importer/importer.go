// Package importer reads user records from CSV files with a header row.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Result counts what an import wrote and what it rejected.
type Result struct {
	Imported int
	Skipped  int
	// Errors holds one message per skipped row.
	Errors []string
}

// rowError rejects a single row without aborting the import.
type rowError struct{ msg string }

func (e *rowError) Error() string { return e.msg }

func skipRow(format string, args ...any) error {
	return &rowError{msg: fmt.Sprintf(format, args...)}
}

// header maps folded column names to their index.
type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	names, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	fold := cases.Fold()
	h := make(header, len(names))
	for i, n := range names {
		h[fold.String(strings.TrimSpace(n))] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}
	return h, nil
}

func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, skipRow("invalid amount %q", s)
	}
	return d.InexactFloat64(), nil
}

// rows calls fn for every record after the header. A rowError is recorded
// and the row skipped; any other error aborts the import.
func rows(r io.Reader, required []string, fn func(h header, record []string) error) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	h, err := readHeader(reader, required...)
	if err != nil {
		return Result{}, err
	}

	var res Result
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		line++
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if err := fn(h, record); err != nil {
			var rowErr *rowError
			if !errors.As(err, &rowErr) {
				return res, err
			}
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, rowErr))
			continue
		}
		res.Imported++
	}
}

// Transactions imports date, kind, amount and category columns, with
// optional account_id and description. Missing accounts are created.
func Transactions(ctx context.Context, st store.Store, userID string, r io.Reader) (Result, error) {
	knownAccounts := make(map[string]bool)
	accounts, err := st.ListAccounts(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, a := range accounts {
		knownAccounts[a.ID] = true
	}

	return rows(r, []string{"date", "kind", "amount", "category"}, func(h header, rec []string) error {
		date, err := model.ParseDate(h.get(rec, "date"))
		if err != nil {
			return skipRow("invalid date %q", h.get(rec, "date"))
		}
		kind := model.Kind(cases.Fold().String(h.get(rec, "kind")))
		if !kind.Valid() {
			return skipRow("invalid kind %q", h.get(rec, "kind"))
		}
		amount, err := parseAmount(h.get(rec, "amount"))
		if err != nil {
			return err
		}

		txn := &model.Transaction{
			UserID:      userID,
			AccountID:   h.get(rec, "account_id"),
			Kind:        kind,
			Amount:      amount,
			Category:    h.get(rec, "category"),
			Date:        date,
			Description: h.get(rec, "description"),
		}
		if !txn.Valid() {
			return skipRow("invalid transaction")
		}

		if txn.AccountID != "" && !knownAccounts[txn.AccountID] {
			if err := st.CreateAccount(ctx, &model.Account{ID: txn.AccountID, UserID: userID, Name: txn.AccountID}); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("failed to create account %s: %w", txn.AccountID, err)
			}
			knownAccounts[txn.AccountID] = true
		}
		if err := st.CreateTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		return nil
	})
}

// Goals imports title and target_amount columns, with an optional
// current_amount.
func Goals(ctx context.Context, st store.Store, userID string, r io.Reader) (Result, error) {
	return rows(r, []string{"title", "target_amount"}, func(h header, rec []string) error {
		target, err := parseAmount(h.get(rec, "target_amount"))
		if err != nil {
			return err
		}
		var current float64
		if raw := h.get(rec, "current_amount"); raw != "" {
			if current, err = parseAmount(raw); err != nil {
				return err
			}
		}
		goal := &model.Goal{UserID: userID, Title: h.get(rec, "title"), TargetAmount: target, CurrentAmount: current}
		if err := st.CreateGoal(ctx, goal); err != nil {
			return fmt.Errorf("failed to create goal: %w", err)
		}
		return nil
	})
}

// Debts imports name and remaining_amount columns, with optional
// total_amount, interest_rate and minimum_payment.
func Debts(ctx context.Context, st store.Store, userID string, r io.Reader) (Result, error) {
	return rows(r, []string{"name", "remaining_amount"}, func(h header, rec []string) error {
		debt := &model.Debt{UserID: userID, Name: h.get(rec, "name")}
		fields := []struct {
			col string
			dst *float64
		}{
			{"remaining_amount", &debt.RemainingAmount},
			{"total_amount", &debt.TotalAmount},
			{"interest_rate", &debt.InterestRate},
			{"minimum_payment", &debt.MinimumPayment},
		}
		for _, f := range fields {
			raw := h.get(rec, f.col)
			if raw == "" {
				continue
			}
			v, err := parseAmount(raw)
			if err != nil {
				return err
			}
			*f.dst = v
		}
		if err := st.CreateDebt(ctx, debt); err != nil {
			return fmt.Errorf("failed to create debt: %w", err)
		}
		return nil
	})
}
