package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/google/uuid"
)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu sync.RWMutex

	// Storage maps
	users        map[string]*model.User
	transactions map[string]*model.Transaction
	accounts     map[string]*model.Account
	goals        map[string]*model.Goal
	debts        map[string]*model.Debt
	anomalies    map[string]*model.Anomaly
	patterns     map[string]*model.RecurringPattern
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*model.User),
		transactions: make(map[string]*model.Transaction),
		accounts:     make(map[string]*model.Account),
		goals:        make(map[string]*model.Goal),
		debts:        make(map[string]*model.Debt),
		anomalies:    make(map[string]*model.Anomaly),
		patterns:     make(map[string]*model.RecurringPattern),
	}
}

// anomalyKey and patternKey mirror the uniqueness constraints.
func anomalyKey(userID, transactionID string) string {
	return fmt.Sprintf("%s_%s", userID, transactionID)
}

func patternKey(userID, category, key string) string {
	return fmt.Sprintf("%s_%s_%s", userID, category, key)
}

// User operations

func (m *MemoryStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryStore) ListUserIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Transaction operations

func (m *MemoryStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	cp := *txn
	m.transactions[txn.ID] = &cp
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Transaction
	for _, txn := range m.transactions {
		if txn.UserID != userID || !filter.matches(txn) {
			continue
		}
		cp := *txn
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Account, goal and debt operations

func (m *MemoryStore) CreateAccount(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *MemoryStore) ListAccounts(ctx context.Context, userID string) ([]*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateGoal(ctx context.Context, goal *model.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	cp := *goal
	m.goals[goal.ID] = &cp
	return nil
}

func (m *MemoryStore) ListGoals(ctx context.Context, userID string) ([]*model.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Goal
	for _, g := range m.goals {
		if g.UserID == userID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateDebt(ctx context.Context, debt *model.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	cp := *debt
	m.debts[debt.ID] = &cp
	return nil
}

func (m *MemoryStore) ListDebts(ctx context.Context, userID string) ([]*model.Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Debt
	for _, d := range m.debts {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Anomaly operations

func (m *MemoryStore) FindAnomaly(ctx context.Context, userID, transactionID string) (*model.Anomaly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.anomalies[anomalyKey(userID, transactionID)]
	if !ok {
		return nil, fmt.Errorf("anomaly for transaction %s: %w", transactionID, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) CreateAnomaly(ctx context.Context, anomaly *model.Anomaly) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := anomalyKey(anomaly.UserID, anomaly.TransactionID)
	if _, ok := m.anomalies[key]; ok {
		return fmt.Errorf("anomaly for transaction %s: %w", anomaly.TransactionID, ErrAlreadyExists)
	}
	if anomaly.ID == "" {
		anomaly.ID = uuid.New().String()
	}
	cp := *anomaly
	m.anomalies[key] = &cp
	return nil
}

func (m *MemoryStore) ListAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Anomaly
	for _, a := range m.anomalies {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FlaggedAt.Equal(out[j].FlaggedAt) {
			return out[i].FlaggedAt.After(out[j].FlaggedAt)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out, nil
}

// Recurring pattern operations

func (m *MemoryStore) FindRecurringPattern(ctx context.Context, userID, category, key string) (*model.RecurringPattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patterns[patternKey(userID, category, key)]
	if !ok {
		return nil, fmt.Errorf("recurring pattern %q: %w", key, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) UpsertRecurringPattern(ctx context.Context, pattern *model.RecurringPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := patternKey(pattern.UserID, pattern.Category, pattern.PatternKey)
	if existing, ok := m.patterns[key]; ok {
		pattern.ID = existing.ID
	}
	if pattern.ID == "" {
		pattern.ID = uuid.New().String()
	}
	cp := *pattern
	m.patterns[key] = &cp
	return nil
}

func (m *MemoryStore) ListRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.RecurringPattern
	for _, p := range m.patterns {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatternKey < out[j].PatternKey })
	return out, nil
}
