package store

import (
	"context"
	"errors"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a create would violate a uniqueness
	// constraint, such as a second anomaly for the same transaction.
	ErrAlreadyExists = errors.New("already exists")
)

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	Kind       model.Kind
	DateFrom   *time.Time
	AccountIDs []string
}

// Store defines the record operations used by the analytics engine
type Store interface {
	// User operations
	GetUser(ctx context.Context, userID string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	ListUserIDs(ctx context.Context) ([]string, error)

	// Transaction operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]*model.Transaction, error)

	// Account, goal and debt operations
	CreateAccount(ctx context.Context, account *model.Account) error
	ListAccounts(ctx context.Context, userID string) ([]*model.Account, error)
	CreateGoal(ctx context.Context, goal *model.Goal) error
	ListGoals(ctx context.Context, userID string) ([]*model.Goal, error)
	CreateDebt(ctx context.Context, debt *model.Debt) error
	ListDebts(ctx context.Context, userID string) ([]*model.Debt, error)

	// Anomaly operations
	FindAnomaly(ctx context.Context, userID, transactionID string) (*model.Anomaly, error)
	CreateAnomaly(ctx context.Context, anomaly *model.Anomaly) error
	ListAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error)

	// Recurring pattern operations
	FindRecurringPattern(ctx context.Context, userID, category, patternKey string) (*model.RecurringPattern, error)
	UpsertRecurringPattern(ctx context.Context, pattern *model.RecurringPattern) error
	ListRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error)
}

// matches reports whether txn passes the filter.
func (f TransactionFilter) matches(txn *model.Transaction) bool {
	if f.Kind != "" && txn.Kind != f.Kind {
		return false
	}
	if f.DateFrom != nil && txn.Date.Before(*f.DateFrom) {
		return false
	}
	if len(f.AccountIDs) > 0 {
		for _, id := range f.AccountIDs {
			if txn.AccountID == id {
				return true
			}
		}
		return false
	}
	return true
}
