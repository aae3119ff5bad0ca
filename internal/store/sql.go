package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLStore implements the Store interface over database/sql. It speaks both
// sqlite and postgres; queries are written with ? placeholders and rebound
// for postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLStore opens the database for driver and applies the schema. For
// sqlite the DSN is a file path; its directory is created if missing.
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	var db *sql.DB
	var err error
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("creating database dir: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer avoids SQLITE_BUSY under concurrent detection runs
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	return err
}

// isUniqueViolation reports whether err is a uniqueness constraint failure
// from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// User operations

func (s *SQLStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	var created string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, display_name, created_at
		FROM users
		WHERE id = ?`), userID).
		Scan(&u.ID, &u.Email, &u.DisplayName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	err := s.exec(ctx, `
		INSERT INTO users (id, email, display_name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, display_name = excluded.display_name`,
		user.ID, user.Email, user.DisplayName, formatTime(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Transaction operations

func (s *SQLStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	err := s.exec(ctx, `
		INSERT INTO transactions (id, user_id, account_id, kind, amount, category, date, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.AccountID, string(txn.Kind), txn.Amount, txn.Category, formatTime(txn.Date), txn.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", txn.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]*model.Transaction, error) {
	query := `
		SELECT id, user_id, account_id, kind, amount, category, date, description
		FROM transactions
		WHERE user_id = ?`
	args := []any{userID}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.DateFrom != nil {
		query += ` AND date >= ?`
		args = append(args, formatTime(*filter.DateFrom))
	}
	if len(filter.AccountIDs) > 0 {
		query += ` AND account_id IN (?` + strings.Repeat(", ?", len(filter.AccountIDs)-1) + `)`
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []*model.Transaction
	for rows.Next() {
		var t model.Transaction
		var kind, date string
		if err := rows.Scan(&t.ID, &t.UserID, &t.AccountID, &kind, &t.Amount, &t.Category, &date, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Kind = model.Kind(kind)
		t.Date = parseTime(date)
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

// Account, goal and debt operations

func (s *SQLStore) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	err := s.exec(ctx, `
		INSERT INTO accounts (id, user_id, name, type)
		VALUES (?, ?, ?, ?)`,
		account.ID, account.UserID, account.Name, account.Type)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *SQLStore) ListAccounts(ctx context.Context, userID string) ([]*model.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, user_id, name, type
		FROM accounts
		WHERE user_id = ?
		ORDER BY id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []*model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (s *SQLStore) CreateGoal(ctx context.Context, goal *model.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	err := s.exec(ctx, `
		INSERT INTO goals (id, user_id, title, target_amount, current_amount, target_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.UserID, goal.Title, goal.TargetAmount, goal.CurrentAmount, formatTime(goal.TargetDate))
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

func (s *SQLStore) ListGoals(ctx context.Context, userID string) ([]*model.Goal, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, user_id, title, target_amount, current_amount, target_date
		FROM goals
		WHERE user_id = ?
		ORDER BY id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []*model.Goal
	for rows.Next() {
		var g model.Goal
		var target string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &target); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.TargetDate = parseTime(target)
		goals = append(goals, &g)
	}
	return goals, rows.Err()
}

func (s *SQLStore) CreateDebt(ctx context.Context, debt *model.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	err := s.exec(ctx, `
		INSERT INTO debts (id, user_id, name, total_amount, remaining_amount, interest_rate, minimum_payment, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.UserID, debt.Name, debt.TotalAmount, debt.RemainingAmount, debt.InterestRate, debt.MinimumPayment, formatTime(debt.DueDate))
	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

func (s *SQLStore) ListDebts(ctx context.Context, userID string) ([]*model.Debt, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, user_id, name, total_amount, remaining_amount, interest_rate, minimum_payment, due_date
		FROM debts
		WHERE user_id = ?
		ORDER BY id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var debts []*model.Debt
	for rows.Next() {
		var d model.Debt
		var due string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.TotalAmount, &d.RemainingAmount, &d.InterestRate, &d.MinimumPayment, &due); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		d.DueDate = parseTime(due)
		debts = append(debts, &d)
	}
	return debts, rows.Err()
}

// Anomaly operations

const anomalyColumns = `id, user_id, transaction_id, anomaly_score, reason, flagged_at, reviewed`

func scanAnomaly(scan func(dest ...any) error) (*model.Anomaly, error) {
	var a model.Anomaly
	var flagged string
	if err := scan(&a.ID, &a.UserID, &a.TransactionID, &a.Score, &a.Reason, &flagged, &a.Reviewed); err != nil {
		return nil, err
	}
	a.FlaggedAt = parseTime(flagged)
	return &a, nil
}

func (s *SQLStore) FindAnomaly(ctx context.Context, userID, transactionID string) (*model.Anomaly, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+anomalyColumns+`
		FROM anomalies
		WHERE user_id = ? AND transaction_id = ?`), userID, transactionID)
	a, err := scanAnomaly(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("anomaly for transaction %s: %w", transactionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anomaly: %w", err)
	}
	return a, nil
}

func (s *SQLStore) CreateAnomaly(ctx context.Context, anomaly *model.Anomaly) error {
	if anomaly.ID == "" {
		anomaly.ID = uuid.New().String()
	}
	err := s.exec(ctx, `
		INSERT INTO anomalies (`+anomalyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		anomaly.ID, anomaly.UserID, anomaly.TransactionID, anomaly.Score, anomaly.Reason, formatTime(anomaly.FlaggedAt), anomaly.Reviewed)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("anomaly for transaction %s: %w", anomaly.TransactionID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create anomaly: %w", err)
	}
	return nil
}

func (s *SQLStore) ListAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+anomalyColumns+`
		FROM anomalies
		WHERE user_id = ?
		ORDER BY flagged_at DESC, transaction_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var anomalies []*model.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}

// Recurring pattern operations

const patternColumns = `id, user_id, category, approx_amount, pattern_key, frequency, average_amount, occurrence_count, last_detected`

func scanPattern(scan func(dest ...any) error) (*model.RecurringPattern, error) {
	var p model.RecurringPattern
	var freq, last string
	if err := scan(&p.ID, &p.UserID, &p.Category, &p.ApproxAmount, &p.PatternKey, &freq, &p.AverageAmount, &p.OccurrenceCount, &last); err != nil {
		return nil, err
	}
	p.Frequency = model.Frequency(freq)
	p.LastDetected = parseTime(last)
	return &p, nil
}

func (s *SQLStore) FindRecurringPattern(ctx context.Context, userID, category, key string) (*model.RecurringPattern, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+patternColumns+`
		FROM recurring_patterns
		WHERE user_id = ? AND category = ? AND pattern_key = ?`), userID, category, key)
	p, err := scanPattern(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurring pattern %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring pattern: %w", err)
	}
	return p, nil
}

// UpsertRecurringPattern inserts the pattern or updates the existing row for
// the same (user, category, key). The stored ID is written back to pattern.
func (s *SQLStore) UpsertRecurringPattern(ctx context.Context, pattern *model.RecurringPattern) error {
	if pattern.ID == "" {
		pattern.ID = uuid.New().String()
	}
	var id string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO recurring_patterns (`+patternColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category, pattern_key) DO UPDATE SET
			approx_amount = excluded.approx_amount,
			frequency = excluded.frequency,
			average_amount = excluded.average_amount,
			occurrence_count = excluded.occurrence_count,
			last_detected = excluded.last_detected
		RETURNING id`),
		pattern.ID, pattern.UserID, pattern.Category, pattern.ApproxAmount, pattern.PatternKey,
		string(pattern.Frequency), pattern.AverageAmount, pattern.OccurrenceCount, formatTime(pattern.LastDetected)).
		Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to upsert recurring pattern: %w", err)
	}
	pattern.ID = id
	return nil
}

func (s *SQLStore) ListRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+patternColumns+`
		FROM recurring_patterns
		WHERE user_id = ?
		ORDER BY pattern_key`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []*model.RecurringPattern
	for rows.Next() {
		p, err := scanPattern(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring pattern: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
