package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
	accountsCollection     = "accounts"
	goalsCollection        = "goals"
	debtsCollection        = "debts"
	anomaliesCollection    = "anomalies"
	patternsCollection     = "recurringPatterns"
)

// FirestoreStore implements the Store interface using Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{
		client: client,
	}
}

// docID builds a deterministic document ID from its parts. Parts are encoded
// so free-text categories cannot introduce path separators.
func docID(parts ...string) string {
	encoded := make([]string, len(parts))
	for i, p := range parts {
		encoded[i] = base64.RawURLEncoding.EncodeToString([]byte(p))
	}
	return strings.Join(encoded, ".")
}

// wrapFirestoreError maps gRPC status codes onto the store sentinel errors.
func wrapFirestoreError(op string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// GetUser retrieves a user from Firestore
func (s *FirestoreStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	doc, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		return nil, wrapFirestoreError("get user", err)
	}

	var user model.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &user, nil
}

// CreateUser stores a user in Firestore
func (s *FirestoreStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := s.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user)
	return err
}

// ListUserIDs returns the IDs of every user document
func (s *FirestoreStore) ListUserIDs(ctx context.Context) ([]string, error) {
	iter := s.client.Collection(usersCollection).DocumentRefs(ctx)
	var ids []string
	for {
		ref, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		ids = append(ids, ref.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateTransaction stores a transaction in Firestore
func (s *FirestoreStore) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	_, err := s.client.Collection(transactionsCollection).Doc(txn.ID).Set(ctx, txn)
	return err
}

// ListTransactions lists a user's transactions ordered by date.
// Account restriction is applied after the query since Firestore caps "in"
// filters at 30 values.
func (s *FirestoreStore) ListTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]*model.Transaction, error) {
	query := s.client.Collection(transactionsCollection).Where("userId", "==", userID)
	if filter.Kind != "" {
		query = query.Where("kind", "==", string(filter.Kind))
	}
	if filter.DateFrom != nil {
		query = query.Where("date", ">=", *filter.DateFrom)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var txns []*model.Transaction
	for _, doc := range docs {
		var txn model.Transaction
		if err := doc.DataTo(&txn); err != nil {
			// corrupt documents are skipped, not fatal
			continue
		}
		if filter.matches(&txn) {
			txns = append(txns, &txn)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
	return txns, nil
}

// CreateAccount stores an account in Firestore
func (s *FirestoreStore) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	_, err := s.client.Collection(accountsCollection).Doc(account.ID).Set(ctx, account)
	return err
}

// ListAccounts lists a user's accounts
func (s *FirestoreStore) ListAccounts(ctx context.Context, userID string) ([]*model.Account, error) {
	docs, err := s.client.Collection(accountsCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	var accounts []*model.Account
	for _, doc := range docs {
		var a model.Account
		if err := doc.DataTo(&a); err != nil {
			continue
		}
		accounts = append(accounts, &a)
	}
	return accounts, nil
}

// CreateGoal stores a goal in Firestore
func (s *FirestoreStore) CreateGoal(ctx context.Context, goal *model.Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	_, err := s.client.Collection(goalsCollection).Doc(goal.ID).Set(ctx, goal)
	return err
}

// ListGoals lists a user's goals
func (s *FirestoreStore) ListGoals(ctx context.Context, userID string) ([]*model.Goal, error) {
	docs, err := s.client.Collection(goalsCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	var goals []*model.Goal
	for _, doc := range docs {
		var g model.Goal
		if err := doc.DataTo(&g); err != nil {
			continue
		}
		goals = append(goals, &g)
	}
	return goals, nil
}

// CreateDebt stores a debt in Firestore
func (s *FirestoreStore) CreateDebt(ctx context.Context, debt *model.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	_, err := s.client.Collection(debtsCollection).Doc(debt.ID).Set(ctx, debt)
	return err
}

// ListDebts lists a user's debts
func (s *FirestoreStore) ListDebts(ctx context.Context, userID string) ([]*model.Debt, error) {
	docs, err := s.client.Collection(debtsCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	var debts []*model.Debt
	for _, doc := range docs {
		var d model.Debt
		if err := doc.DataTo(&d); err != nil {
			continue
		}
		debts = append(debts, &d)
	}
	return debts, nil
}

// FindAnomaly looks up the anomaly for a transaction by its deterministic ID
func (s *FirestoreStore) FindAnomaly(ctx context.Context, userID, transactionID string) (*model.Anomaly, error) {
	doc, err := s.client.Collection(anomaliesCollection).Doc(docID(userID, transactionID)).Get(ctx)
	if err != nil {
		return nil, wrapFirestoreError("get anomaly", err)
	}
	var a model.Anomaly
	if err := doc.DataTo(&a); err != nil {
		return nil, fmt.Errorf("failed to parse anomaly: %w", err)
	}
	return &a, nil
}

// CreateAnomaly creates the anomaly document. The deterministic document ID
// makes a concurrent duplicate fail with AlreadyExists.
func (s *FirestoreStore) CreateAnomaly(ctx context.Context, anomaly *model.Anomaly) error {
	if anomaly.ID == "" {
		anomaly.ID = uuid.New().String()
	}
	_, err := s.client.Collection(anomaliesCollection).Doc(docID(anomaly.UserID, anomaly.TransactionID)).Create(ctx, anomaly)
	if err != nil {
		return wrapFirestoreError("create anomaly", err)
	}
	return nil
}

// ListAnomalies lists a user's anomalies, most recent first
func (s *FirestoreStore) ListAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error) {
	docs, err := s.client.Collection(anomaliesCollection).
		Where("userId", "==", userID).
		OrderBy("flaggedAt", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}
	var anomalies []*model.Anomaly
	for _, doc := range docs {
		var a model.Anomaly
		if err := doc.DataTo(&a); err != nil {
			continue
		}
		anomalies = append(anomalies, &a)
	}
	return anomalies, nil
}

// FindRecurringPattern looks up a pattern by user, category and key
func (s *FirestoreStore) FindRecurringPattern(ctx context.Context, userID, category, key string) (*model.RecurringPattern, error) {
	doc, err := s.client.Collection(patternsCollection).Doc(docID(userID, category, key)).Get(ctx)
	if err != nil {
		return nil, wrapFirestoreError("get recurring pattern", err)
	}
	var p model.RecurringPattern
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to parse recurring pattern: %w", err)
	}
	return &p, nil
}

// UpsertRecurringPattern creates or replaces a pattern under its deterministic ID
func (s *FirestoreStore) UpsertRecurringPattern(ctx context.Context, pattern *model.RecurringPattern) error {
	if pattern.ID == "" {
		pattern.ID = uuid.New().String()
	}
	_, err := s.client.Collection(patternsCollection).Doc(docID(pattern.UserID, pattern.Category, pattern.PatternKey)).Set(ctx, pattern)
	return err
}

// ListRecurringPatterns lists a user's recurring patterns
func (s *FirestoreStore) ListRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error) {
	docs, err := s.client.Collection(patternsCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring patterns: %w", err)
	}
	var patterns []*model.RecurringPattern
	for _, doc := range docs {
		var p model.RecurringPattern
		if err := doc.DataTo(&p); err != nil {
			continue
		}
		patterns = append(patterns, &p)
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].PatternKey < patterns[j].PatternKey })
	return patterns, nil
}
