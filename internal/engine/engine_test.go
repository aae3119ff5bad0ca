package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/cache"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/projection"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, st store.Store) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Retry = RetryConfig{MaxRetries: 0}
	e := New(st, opts, nil)
	e.now = func() time.Time { return testNow }
	e.newRand = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	return e
}

func seedUser(t *testing.T, st store.Store, userID string) {
	t.Helper()
	require.NoError(t, st.CreateUser(context.Background(), &model.User{ID: userID}))
}

func addTxn(t *testing.T, st store.Store, txn *model.Transaction) {
	t.Helper()
	require.NoError(t, st.CreateTransaction(context.Background(), txn))
}

// seedHistory writes 90 days of expenses with a weekly cycle and a
// fortnightly salary ending the day before testNow.
func seedHistory(t *testing.T, st store.Store, userID string) {
	t.Helper()
	start := model.Day(testNow).AddDate(0, 0, -90)
	for i := 0; i < 90; i++ {
		day := start.AddDate(0, 0, i)
		addTxn(t, st, &model.Transaction{
			UserID: userID, AccountID: "acc", Kind: model.KindExpense,
			Amount: 50 + float64(i%7)*10, Category: "groceries", Date: day,
		})
		if i%14 == 0 {
			addTxn(t, st, &model.Transaction{
				UserID: userID, AccountID: "acc", Kind: model.KindIncome,
				Amount: 2000, Category: "salary", Date: day,
			})
		}
	}
}

func TestForecastValidation(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	e := newTestEngine(t, st)

	t.Run("unknown user", func(t *testing.T) {
		_, err := e.Forecast(ctx, ForecastRequest{UserID: "ghost"})
		assert.Equal(t, CodeNotFound, CodeOf(err))
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("periods out of range", func(t *testing.T) {
		for _, periods := range []int{-1, 3651} {
			_, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: periods})
			assert.Equal(t, CodeInvalidArgument, CodeOf(err), "periods %d", periods)
		}
	})

	t.Run("bad horizon", func(t *testing.T) {
		_, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Horizon: "fortnight"})
		assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	})
}

func TestResolvePeriods(t *testing.T) {
	e := newTestEngine(t, store.NewMemoryStore())
	tests := []struct {
		req  ForecastRequest
		want int
	}{
		{ForecastRequest{}, 30},
		{ForecastRequest{Horizon: "week"}, 7},
		{ForecastRequest{Horizon: "Month"}, 30},
		{ForecastRequest{Horizon: "year"}, 365},
		{ForecastRequest{Horizon: "45"}, 45},
		{ForecastRequest{Periods: 12, Horizon: "year"}, 12},
	}
	for _, tt := range tests {
		got, err := e.resolvePeriods(tt.req)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt.req)
	}
}

func TestForecastLengthInvariant(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	seedHistory(t, st, "u1")
	e := newTestEngine(t, st)

	for _, m := range []string{"holt", "arima", "sarima", "prophet", "gbrt"} {
		t.Run(m, func(t *testing.T) {
			p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Model: m, Periods: 21})
			require.NoError(t, err)
			assert.False(t, p.Synthetic)
			require.Len(t, p.Forecast.Income, 21)
			require.Len(t, p.Forecast.Expense, 21)
			require.Len(t, p.Forecast.Balance, 21)

			assert.Equal(t, model.FormatDate(model.Day(testNow).AddDate(0, 0, -1)), p.LastObservedDate)
			assert.Equal(t, model.Day(testNow), p.Forecast.Income[0].Date)
			for i := range p.Forecast.Balance {
				assert.InDelta(t, p.Forecast.Income[i].Value-p.Forecast.Expense[i].Value, p.Forecast.Balance[i].Value, 1e-9)
				assert.False(t, math.IsNaN(p.Forecast.Balance[i].Value))
			}
		})
	}
}

func TestForecastWithoutHistoryIsSyntheticAndUncached(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	e := newTestEngine(t, st)
	mc := cache.NewMemoryCache(time.Hour)
	defer mc.Stop()
	e.SetCache(mc)

	p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 10})
	require.NoError(t, err)
	assert.True(t, p.Synthetic)
	assert.Len(t, p.Forecast.Income, 10)
	assert.Equal(t, 0, mc.Len())
}

func TestForecastIsCachedUntilDataChanges(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	seedHistory(t, st, "u1")
	e := newTestEngine(t, st)
	mc := cache.NewMemoryCache(time.Hour)
	defer mc.Stop()
	e.SetCache(mc)

	req := ForecastRequest{UserID: "u1", Periods: 14}
	first, err := e.Forecast(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.Len())

	second, err := e.Forecast(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, mc.Len())

	addTxn(t, st, &model.Transaction{UserID: "u1", Kind: model.KindExpense, Amount: 10, Category: "x", Date: model.Day(testNow).AddDate(0, 0, -1)})
	_, err = e.Forecast(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, mc.Len())
}

func TestForecastGranularity(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	seedHistory(t, st, "u1")
	e := newTestEngine(t, st)

	daily, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 60})
	require.NoError(t, err)

	for _, g := range []string{"weekly", "monthly"} {
		t.Run(g, func(t *testing.T) {
			p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 60, Granularity: g})
			require.NoError(t, err)
			assert.Less(t, len(p.Forecast.Expense), 60)
			assert.InDelta(t, daily.Summary.ExpenseTotal, p.Summary.ExpenseTotal, 1e-6)
			assert.InDelta(t, daily.Summary.IncomeTotal, p.Summary.IncomeTotal, 1e-6)
		})
	}

	t.Run("invalid granularity falls back to daily", func(t *testing.T) {
		p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 60, Granularity: "hourly"})
		require.NoError(t, err)
		assert.Equal(t, aggregate.Daily, p.Granularity)
		assert.Len(t, p.Forecast.Expense, 60)
		assert.NotEmpty(t, p.Warnings)
	})

	t.Run("unknown model falls back to holt", func(t *testing.T) {
		p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 7, Model: "lstm"})
		require.NoError(t, err)
		assert.Equal(t, "holt", p.Model)
		assert.NotEmpty(t, p.Warnings)
	})
}

func TestForecastTargetDate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	seedHistory(t, st, "u1")
	e := newTestEngine(t, st)

	t.Run("beyond the horizon", func(t *testing.T) {
		target := model.FormatDate(model.Day(testNow).AddDate(0, 0, 44))
		p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 7, TargetDate: target})
		require.NoError(t, err)
		assert.Len(t, p.Forecast.Income, 7)
		require.NotNil(t, p.TargetPoint)
		assert.Equal(t, target, p.TargetPoint.Date)
		require.NotNil(t, p.TargetPoint.Balance)
		require.NotNil(t, p.TargetPoint.Income)
		assert.InDelta(t, *p.TargetPoint.Income-*p.TargetPoint.Expense, *p.TargetPoint.Balance, 1e-9)
	})

	t.Run("beyond the period limit", func(t *testing.T) {
		for _, target := range []string{"2400-01-01", "9999-12-31"} {
			p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 7, TargetDate: target})
			require.NoError(t, err)
			require.NotNil(t, p.TargetPoint)
			assert.Equal(t, target, p.TargetPoint.Date)
			assert.Equal(t, fmt.Sprintf(aggregate.ErrTargetDateRange, DefaultOptions().MaxPeriods), p.TargetPoint.Error)
			assert.Nil(t, p.TargetPoint.Balance)
			assert.Len(t, p.Forecast.Income, 7)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		p, err := e.Forecast(ctx, ForecastRequest{UserID: "u1", Periods: 7, TargetDate: "next tuesday"})
		require.NoError(t, err)
		require.NotNil(t, p.TargetPoint)
		assert.Equal(t, aggregate.ErrTargetDateFormat, p.TargetPoint.Error)
		assert.Len(t, p.Forecast.Income, 7)
	})
}

// seedAnomalies writes a food category with one outlier.
func seedAnomalies(t *testing.T, st store.Store, userID string) {
	t.Helper()
	amounts := []float64{20, 22, 19, 21, 20, 18, 200}
	for i, a := range amounts {
		addTxn(t, st, &model.Transaction{
			UserID: userID, Kind: model.KindExpense, Amount: a, Category: "food",
			Date: model.Day(testNow).AddDate(0, 0, -i-1),
		})
	}
	// corrupt record is skipped, not fatal
	addTxn(t, st, &model.Transaction{UserID: userID, Kind: model.KindExpense, Amount: math.NaN(), Category: "food", Date: testNow})
}

func TestDetectAnomaliesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	seedAnomalies(t, st, "u1")
	e := newTestEngine(t, st)

	created, err := e.DetectAnomalies(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Greater(t, created[0].Score, 2.0)
	assert.Contains(t, created[0].Reason, "category avg")
	assert.Equal(t, testNow, created[0].FlaggedAt)

	again, err := e.DetectAnomalies(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := e.ListAnomalies(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDetectAnomaliesConcurrentRunsCreateOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	seedAnomalies(t, st, "u1")
	e := newTestEngine(t, st)

	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := e.DetectAnomalies(ctx, "u1")
			assert.NoError(t, err)
			mu.Lock()
			total += len(created)
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, total)
}

func TestDetectAnomaliesWithMockStore(t *testing.T) {
	ctx := context.Background()
	outlier := &model.Transaction{ID: "t-big", UserID: "u1", Kind: model.KindExpense, Amount: 500, Category: "food", Date: testNow}
	expenses := []*model.Transaction{
		{ID: "t1", UserID: "u1", Kind: model.KindExpense, Amount: 20, Category: "food", Date: testNow},
		{ID: "t2", UserID: "u1", Kind: model.KindExpense, Amount: 21, Category: "food", Date: testNow},
		{ID: "t3", UserID: "u1", Kind: model.KindExpense, Amount: 19, Category: "food", Date: testNow},
		outlier,
	}

	t.Run("existing anomaly is skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := store.NewMockStore(ctrl)
		st.EXPECT().GetUser(gomock.Any(), "u1").Return(&model.User{ID: "u1"}, nil)
		st.EXPECT().ListTransactions(gomock.Any(), "u1", store.TransactionFilter{Kind: model.KindExpense}).Return(expenses, nil)
		st.EXPECT().FindAnomaly(gomock.Any(), "u1", "t-big").Return(&model.Anomaly{ID: "a1"}, nil)

		created, err := newTestEngine(t, st).DetectAnomalies(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, created)
	})

	t.Run("uniqueness conflict is not an error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := store.NewMockStore(ctrl)
		st.EXPECT().GetUser(gomock.Any(), "u1").Return(&model.User{ID: "u1"}, nil)
		st.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(expenses, nil)
		st.EXPECT().FindAnomaly(gomock.Any(), "u1", "t-big").Return(nil, store.ErrNotFound)
		st.EXPECT().CreateAnomaly(gomock.Any(), gomock.Any()).Return(store.ErrAlreadyExists)

		created, err := newTestEngine(t, st).DetectAnomalies(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, created)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := store.NewMockStore(ctrl)
		st.EXPECT().GetUser(gomock.Any(), "u1").Return(&model.User{ID: "u1"}, nil)
		st.EXPECT().ListTransactions(gomock.Any(), "u1", gomock.Any()).Return(nil, errors.New("connection reset"))

		_, err := newTestEngine(t, st).DetectAnomalies(ctx, "u1")
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestMineRecurringPatterns(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	for i, a := range []float64{20, 22, 18} {
		addTxn(t, st, &model.Transaction{
			UserID: "u1", Kind: model.KindExpense, Amount: a, Category: "Gym",
			Date: time.Date(2025, time.Month(3+i), 1, 0, 0, 0, 0, time.UTC),
		})
	}
	e := newTestEngine(t, st)

	created, err := e.MineRecurringPatterns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Gym ~0", created[0].PatternKey)
	assert.Equal(t, model.FrequencyMonthly, created[0].Frequency)
	assert.Equal(t, 3, created[0].OccurrenceCount)

	addTxn(t, st, &model.Transaction{UserID: "u1", Kind: model.KindExpense, Amount: 21, Category: "Gym", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	again, err := e.MineRecurringPatterns(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again)

	patterns, err := e.ListRecurringPatterns(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, created[0].ID, patterns[0].ID)
	assert.Equal(t, 4, patterns[0].OccurrenceCount)
	assert.InDelta(t, 20.25, patterns[0].AverageAmount, 1e-9)
}

func TestProjectGoals(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	require.NoError(t, st.CreateGoal(ctx, &model.Goal{ID: "g1", UserID: "u1", Title: "House", TargetAmount: 100000, CurrentAmount: 40000}))
	e := newTestEngine(t, st)

	t.Run("no accounts", func(t *testing.T) {
		addTxn(t, st, &model.Transaction{UserID: "u1", Kind: model.KindIncome, Amount: 15000, Category: "salary", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
		out, err := e.ProjectGoals(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, model.NotAvailable, out[0].PredictedCompletionDate)
	})

	t.Run("net saving from the user's accounts", func(t *testing.T) {
		require.NoError(t, st.CreateAccount(ctx, &model.Account{ID: "acc", UserID: "u1"}))
		for _, m := range []time.Month{4, 5, 6} {
			addTxn(t, st, &model.Transaction{UserID: "u1", AccountID: "acc", Kind: model.KindIncome, Amount: 15000, Category: "salary", Date: time.Date(2025, m, 1, 0, 0, 0, 0, time.UTC)})
			addTxn(t, st, &model.Transaction{UserID: "u1", AccountID: "acc", Kind: model.KindExpense, Amount: 3000, Category: "rent", Date: time.Date(2025, m, 15, 0, 0, 0, 0, time.UTC)})
		}
		out, err := e.ProjectGoals(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, 12000.0, out[0].MonthlyNetSaving)
		assert.Equal(t, model.FormatDate(testNow.AddDate(0, 0, 150)), out[0].PredictedCompletionDate)
	})
}

func TestMonthLevelPredictions(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedUser(t, st, "u1")
	e := newTestEngine(t, st)

	t.Run("debt payoff without debts", func(t *testing.T) {
		_, err := e.PredictDebtPayoff(ctx, "u1")
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("salary without history", func(t *testing.T) {
		_, err := e.PredictSalary(ctx, "u1")
		assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	})

	for i, m := range []time.Month{3, 4, 5} {
		addTxn(t, st, &model.Transaction{UserID: "u1", Kind: model.KindIncome, Amount: 5000 + 100*float64(i), Category: "salary", Date: time.Date(2025, m, 28, 0, 0, 0, 0, time.UTC)})
		addTxn(t, st, &model.Transaction{UserID: "u1", Kind: model.KindExpense, Amount: 1000, Category: "loan", Date: time.Date(2025, m, 5, 0, 0, 0, 0, time.UTC)})
	}
	require.NoError(t, st.CreateDebt(ctx, &model.Debt{UserID: "u1", RemainingAmount: 2500}))

	t.Run("salary", func(t *testing.T) {
		p, err := e.PredictSalary(ctx, "u1")
		require.NoError(t, err)
		assert.InDelta(t, 5300, p.PredictedIncome, 1e-6)
	})

	t.Run("next month", func(t *testing.T) {
		p, err := e.PredictNextMonth(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "2025-07", p.TargetPeriod)
		assert.Equal(t, 0.8, p.Confidence)
	})

	t.Run("debt payoff", func(t *testing.T) {
		p, err := e.PredictDebtPayoff(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, projection.DebtStatusCleared, p.Status)
		require.NotNil(t, p.MonthsToClear)
		assert.Equal(t, 3, *p.MonthsToClear)
	})
}

func TestWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	t.Run("transient then success", func(t *testing.T) {
		attempts := 0
		got, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("unavailable")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, attempts)
	})

	t.Run("not found is final", func(t *testing.T) {
		attempts := 0
		_, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (int, error) {
			attempts++
			return 0, store.ErrNotFound
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Equal(t, 1, attempts)
	})

	t.Run("exhausted", func(t *testing.T) {
		attempts := 0
		_, err := WithRetry(context.Background(), cfg, func(ctx context.Context) (int, error) {
			attempts++
			return 0, errors.New("still down")
		})
		assert.Error(t, err)
		assert.Equal(t, 4, attempts)
	})
}

func TestRetryBackoff(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, cfg.backoff(0))
	assert.Equal(t, 400*time.Millisecond, cfg.backoff(2))
	assert.Equal(t, time.Second, cfg.backoff(6))

	cfg.JitterFraction = 0.5
	for i := 0; i < 20; i++ {
		d := cfg.backoff(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}
