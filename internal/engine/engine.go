// Package engine runs the analytics operations for one user against the
// record store: forecasting, anomaly detection, recurring pattern mining and
// month-level projections.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/anomaly"
	"github.com/castlemilk/pfinance/analytics/internal/cache"
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/locker"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/projection"
	"github.com/castlemilk/pfinance/analytics/internal/recurring"
	"github.com/castlemilk/pfinance/analytics/internal/series"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/sirupsen/logrus"
)

// Options bundles the tunables of every analytics component.
type Options struct {
	Dispatcher     forecast.Config
	Series         series.Options
	DefaultPeriods int
	MaxPeriods     int
	Anomaly        anomaly.Thresholds
	Recurring      recurring.Options
	Goals          projection.Options
	Retry          RetryConfig
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Dispatcher:     forecast.DefaultConfig(),
		DefaultPeriods: 30,
		MaxPeriods:     3650,
		Anomaly:        anomaly.DefaultThresholds(),
		Recurring:      recurring.DefaultOptions(),
		Goals:          projection.DefaultOptions(),
		Retry:          DefaultStoreRetryConfig,
	}
}

// Engine is safe for concurrent use. It keeps no per-user state besides the
// detection locks.
type Engine struct {
	store      store.Store
	dispatcher *forecast.Dispatcher
	cache      cache.Cache
	locks      *locker.Locker
	opts       Options
	logger     *logrus.Entry

	// now and newRand are replaced in tests.
	now     func() time.Time
	newRand func() *rand.Rand
}

// New creates an engine over st. A nil logger discards output.
func New(st store.Store, opts Options, logger *logrus.Logger) *Engine {
	def := DefaultOptions()
	if opts.DefaultPeriods <= 0 {
		opts.DefaultPeriods = def.DefaultPeriods
	}
	if opts.MaxPeriods <= 0 {
		opts.MaxPeriods = def.MaxPeriods
	}
	if opts.Anomaly == (anomaly.Thresholds{}) {
		opts.Anomaly = def.Anomaly
	}

	entry := logging.Component(logger, "engine")
	return &Engine{
		store:      st,
		dispatcher: forecast.NewDispatcher(opts.Dispatcher, logging.Component(logger, "forecast")),
		cache:      cache.Nop{},
		locks:      locker.New(),
		opts:       opts,
		logger:     entry,
		now:        time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// SetCache sets the forecast payload cache.
func (e *Engine) SetCache(c cache.Cache) {
	if c == nil {
		c = cache.Nop{}
	}
	e.cache = c
}

// requireUser fails with NOT_FOUND for an unknown user.
func (e *Engine) requireUser(ctx context.Context, userID string) error {
	if userID == "" {
		return invalidArgument("user_id is required")
	}
	_, err := WithRetry(ctx, e.opts.Retry, func(ctx context.Context) (*model.User, error) {
		return e.store.GetUser(ctx, userID)
	})
	if err != nil {
		return storeError(fmt.Sprintf("get user %s", userID), err)
	}
	return nil
}

func (e *Engine) listTransactions(ctx context.Context, userID string, filter store.TransactionFilter) ([]*model.Transaction, error) {
	txns, err := WithRetry(ctx, e.opts.Retry, func(ctx context.Context) ([]*model.Transaction, error) {
		return e.store.ListTransactions(ctx, userID, filter)
	})
	if err != nil {
		return nil, storeError("list transactions", err)
	}
	return txns, nil
}

// logSkipped reports corrupt records that an operation ignored.
func (e *Engine) logSkipped(userID, op string, skipped int) {
	if skipped == 0 {
		return
	}
	e.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"operation": op,
		"skipped":   skipped,
	}).Warn("skipped corrupt transactions")
}

// DetectAnomalies flags unusual expenses and persists new anomalies. Runs for
// the same user are serialized; transactions that already carry an anomaly
// are skipped, so repeated runs create nothing new.
func (e *Engine) DetectAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := e.locks.Lock(ctx, "anomalies:"+userID); err != nil {
		return nil, err
	}
	defer e.locks.Unlock("anomalies:" + userID)

	expenses, err := e.listTransactions(ctx, userID, store.TransactionFilter{Kind: model.KindExpense})
	if err != nil {
		return nil, err
	}
	findings, skipped := anomaly.Detect(expenses, e.opts.Anomaly)
	e.logSkipped(userID, "detect_anomalies", skipped)

	created := []*model.Anomaly{}
	for _, f := range findings {
		_, err := e.store.FindAnomaly(ctx, userID, f.Transaction.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, storeError("find anomaly", err)
		}

		a := &model.Anomaly{
			UserID:        userID,
			TransactionID: f.Transaction.ID,
			Score:         f.Score,
			Reason:        f.Reason,
			FlaggedAt:     e.now().UTC(),
		}
		if err := e.store.CreateAnomaly(ctx, a); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// another process flagged it first
				continue
			}
			return nil, storeError("create anomaly", err)
		}
		created = append(created, a)
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"findings": len(findings),
		"created":  len(created),
	}).Info("anomaly detection finished")
	return created, nil
}

// ListAnomalies returns the user's persisted anomalies, most recent first.
func (e *Engine) ListAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	anomalies, err := e.store.ListAnomalies(ctx, userID)
	if err != nil {
		return nil, storeError("list anomalies", err)
	}
	return anomalies, nil
}

// MineRecurringPatterns detects recurring expense buckets. Known patterns are
// updated in place; only newly created patterns are returned.
func (e *Engine) MineRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := e.locks.Lock(ctx, "recurring:"+userID); err != nil {
		return nil, err
	}
	defer e.locks.Unlock("recurring:" + userID)

	expenses, err := e.listTransactions(ctx, userID, store.TransactionFilter{Kind: model.KindExpense})
	if err != nil {
		return nil, err
	}
	candidates, skipped := recurring.Mine(expenses, e.opts.Recurring)
	e.logSkipped(userID, "mine_recurring", skipped)

	now := e.now().UTC()
	created := []*model.RecurringPattern{}
	for _, c := range candidates {
		existing, err := e.store.FindRecurringPattern(ctx, userID, c.Category, c.PatternKey)
		isNew := errors.Is(err, store.ErrNotFound)
		if err != nil && !isNew {
			return nil, storeError("find recurring pattern", err)
		}

		p := &model.RecurringPattern{
			UserID:          userID,
			Category:        c.Category,
			ApproxAmount:    c.ApproxAmount,
			PatternKey:      c.PatternKey,
			Frequency:       c.Frequency,
			AverageAmount:   c.AverageAmount,
			OccurrenceCount: c.Occurrences,
			LastDetected:    now,
		}
		if !isNew {
			p.ID = existing.ID
		}
		if err := e.store.UpsertRecurringPattern(ctx, p); err != nil {
			return nil, storeError("save recurring pattern", err)
		}
		if isNew {
			created = append(created, p)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"candidates": len(candidates),
		"created":    len(created),
	}).Info("recurring pattern mining finished")
	return created, nil
}

// ListRecurringPatterns returns the user's persisted patterns.
func (e *Engine) ListRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	patterns, err := e.store.ListRecurringPatterns(ctx, userID)
	if err != nil {
		return nil, storeError("list recurring patterns", err)
	}
	return patterns, nil
}

// ProjectGoals estimates completion dates from the trailing monthly net
// saving on the user's accounts.
func (e *Engine) ProjectGoals(ctx context.Context, userID string) ([]model.GoalProjection, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	goals, err := e.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, storeError("list goals", err)
	}
	accounts, err := e.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, storeError("list accounts", err)
	}

	now := e.now().UTC()
	var txns []*model.Transaction
	// with no accounts nothing is attributable, so every goal reports N/A
	if len(accounts) > 0 {
		ids := make([]string, len(accounts))
		for i, a := range accounts {
			ids[i] = a.ID
		}
		since := now.AddDate(0, 0, -e.goalOptions().WindowDays)
		txns, err = e.listTransactions(ctx, userID, store.TransactionFilter{DateFrom: &since, AccountIDs: ids})
		if err != nil {
			return nil, err
		}
	}
	return projection.ProjectGoals(goals, txns, now, e.opts.Goals), nil
}

func (e *Engine) goalOptions() projection.Options {
	o := e.opts.Goals
	def := projection.DefaultOptions()
	if o.WindowDays <= 0 {
		o.WindowDays = def.WindowDays
	}
	return o
}

// PredictNextMonth projects next month's income and expense.
func (e *Engine) PredictNextMonth(ctx context.Context, userID string) (projection.MonthlyPrediction, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return projection.MonthlyPrediction{}, err
	}
	now := e.now().UTC()
	since := now.AddDate(0, 0, -e.goalOptions().WindowDays)
	txns, err := e.listTransactions(ctx, userID, store.TransactionFilter{DateFrom: &since})
	if err != nil {
		return projection.MonthlyPrediction{}, err
	}
	return projection.PredictNextMonth(txns, now, e.opts.Goals), nil
}

// PredictSalary projects next month's income from the monthly income trend.
// Fewer than three months of income is INVALID_ARGUMENT.
func (e *Engine) PredictSalary(ctx context.Context, userID string) (projection.SalaryPrediction, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return projection.SalaryPrediction{}, err
	}
	txns, err := e.listTransactions(ctx, userID, store.TransactionFilter{Kind: model.KindIncome})
	if err != nil {
		return projection.SalaryPrediction{}, err
	}
	p, ok := projection.PredictSalary(txns, e.now().UTC())
	if !ok {
		return p, invalidArgument("not enough income history: %d of %d months", p.MonthsUsed, projection.MinSalaryMonths)
	}
	return p, nil
}

// PredictDebtPayoff projects when the user's outstanding debts are cleared.
// A user without debts is NOT_FOUND.
func (e *Engine) PredictDebtPayoff(ctx context.Context, userID string) (projection.DebtPayoff, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return projection.DebtPayoff{}, err
	}
	debts, err := e.store.ListDebts(ctx, userID)
	if err != nil {
		return projection.DebtPayoff{}, storeError("list debts", err)
	}
	if len(debts) == 0 {
		return projection.DebtPayoff{}, &Error{Code: CodeNotFound, Message: "no debts found"}
	}
	txns, err := e.listTransactions(ctx, userID, store.TransactionFilter{Kind: model.KindExpense})
	if err != nil {
		return projection.DebtPayoff{}, err
	}
	return projection.PredictDebtPayoff(debts, txns, e.now().UTC()), nil
}
