package projection

import (
	"testing"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

func tx(kind model.Kind, date string, amount float64) *model.Transaction {
	d, _ := model.ParseDate(date)
	return &model.Transaction{Kind: kind, Date: d, Amount: amount, Category: "x"}
}

func TestCompletionDate(t *testing.T) {
	t.Run("linear eta", func(t *testing.T) {
		got := CompletionDate(100000-40000, 12000, now)
		assert.Equal(t, model.FormatDate(now.AddDate(0, 0, 150)), got)
	})

	t.Run("no saving", func(t *testing.T) {
		assert.Equal(t, model.NotAvailable, CompletionDate(60000, 0, now))
		assert.Equal(t, model.NotAvailable, CompletionDate(60000, -500, now))
	})

	t.Run("already reached", func(t *testing.T) {
		assert.Equal(t, model.NotAvailable, CompletionDate(0, 12000, now))
	})

	t.Run("distant eta stays in the future", func(t *testing.T) {
		got := CompletionDate(1e6, 100, now)
		assert.Equal(t, model.FormatDate(now.AddDate(0, 0, 300000)), got)
		assert.Greater(t, got, model.FormatDate(now))
	})

	t.Run("eta past year 9999", func(t *testing.T) {
		assert.Equal(t, model.NotAvailable, CompletionDate(1e6, 1, now))
		assert.Equal(t, model.NotAvailable, CompletionDate(1e6, 1e-300, now))
	})

	t.Run("fractional months", func(t *testing.T) {
		assert.Equal(t, model.FormatDate(now.AddDate(0, 0, 45)), CompletionDate(1500, 1000, now))
	})
}

func TestMonthlyNetSaving(t *testing.T) {
	months := []MonthTotals{
		{Month: "2025-03", Income: 5000, Expense: 3000},
		{Month: "2025-04", Income: 2000, Expense: 4000},
		{Month: "2025-05", Income: 6000, Expense: 2000},
	}
	// the loss-making April is excluded, not averaged in
	assert.Equal(t, 3000.0, MonthlyNetSaving(months))
	assert.Equal(t, 0.0, MonthlyNetSaving(months[1:2]))
	assert.Equal(t, 0.0, MonthlyNetSaving(nil))
}

func TestGroupByMonth(t *testing.T) {
	txns := []*model.Transaction{
		tx(model.KindIncome, "2025-05-01", 100),
		tx(model.KindExpense, "2025-05-20", 40),
		tx(model.KindIncome, "2025-04-02", 50),
		tx(model.KindExpense, "2024-12-31", 999),
		{Kind: model.KindIncome, Amount: 1},
	}
	since, _ := model.ParseDate("2025-01-01")
	months := GroupByMonth(txns, since)

	require.Len(t, months, 2)
	assert.Equal(t, MonthTotals{Month: "2025-04", Income: 50}, months[0])
	assert.Equal(t, MonthTotals{Month: "2025-05", Income: 100, Expense: 40}, months[1])
}

func TestProjectGoals(t *testing.T) {
	txns := []*model.Transaction{
		// outside the 120 day window
		tx(model.KindIncome, "2025-01-10", 90000),
		tx(model.KindIncome, "2025-03-01", 15000),
		tx(model.KindExpense, "2025-03-15", 3000),
		tx(model.KindIncome, "2025-04-01", 15000),
		tx(model.KindExpense, "2025-04-15", 3000),
		tx(model.KindIncome, "2025-05-01", 1000),
		tx(model.KindExpense, "2025-05-15", 3000),
		tx(model.KindIncome, "2025-06-01", 15000),
		tx(model.KindExpense, "2025-06-15", 3000),
	}
	goals := []*model.Goal{
		{ID: "g1", Title: "House", TargetAmount: 100000, CurrentAmount: 40000},
		{ID: "g2", Title: "Done", TargetAmount: 5000, CurrentAmount: 7000},
	}

	out := ProjectGoals(goals, txns, now, DefaultOptions())
	require.Len(t, out, 2)

	// last three months are Apr(+12000), May(-2000), Jun(+12000)
	assert.Equal(t, 3, out[0].MonthsOfHistoryUsed)
	assert.Equal(t, 12000.0, out[0].MonthlyNetSaving)
	assert.Equal(t, 60000.0, out[0].Remaining)
	assert.Equal(t, model.FormatDate(now.AddDate(0, 0, 150)), out[0].PredictedCompletionDate)

	assert.Equal(t, 0.0, out[1].Remaining)
	assert.Equal(t, model.NotAvailable, out[1].PredictedCompletionDate)
}

func TestPredictNextMonth(t *testing.T) {
	t.Run("confidence by history length", func(t *testing.T) {
		txns := []*model.Transaction{
			tx(model.KindIncome, "2025-05-01", 4000),
			tx(model.KindExpense, "2025-05-10", 1000),
			tx(model.KindIncome, "2025-06-01", 6000),
			tx(model.KindExpense, "2025-06-10", 3000),
		}
		p := PredictNextMonth(txns, now, DefaultOptions())
		assert.Equal(t, "2025-07", p.TargetPeriod)
		assert.Equal(t, 5000.0, p.PredictedIncome)
		assert.Equal(t, 2000.0, p.PredictedExpense)
		assert.Equal(t, 3000.0, p.PredictedBalance)
		assert.Equal(t, 0.6, p.Confidence)
		assert.Equal(t, 2, p.MonthsUsed)
	})

	t.Run("no history", func(t *testing.T) {
		dec := time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC)
		p := PredictNextMonth(nil, dec, DefaultOptions())
		assert.Equal(t, "2026-01", p.TargetPeriod)
		assert.Equal(t, 0.2, p.Confidence)
		assert.Equal(t, 0.0, p.PredictedIncome)
	})
}

func TestPredictSalary(t *testing.T) {
	t.Run("linear trend", func(t *testing.T) {
		txns := []*model.Transaction{
			tx(model.KindIncome, "2025-01-28", 5000),
			tx(model.KindIncome, "2025-02-28", 5100),
			tx(model.KindIncome, "2025-03-28", 5200),
			tx(model.KindIncome, "2025-04-28", 5300),
			tx(model.KindExpense, "2025-04-29", 99999),
		}
		p, ok := PredictSalary(txns, now)
		require.True(t, ok)
		assert.InDelta(t, 5400, p.PredictedIncome, 1e-6)
		assert.InDelta(t, 1.0, p.Confidence, 1e-9)
		assert.Equal(t, 4, p.MonthsUsed)
	})

	t.Run("constant salary", func(t *testing.T) {
		txns := []*model.Transaction{
			tx(model.KindIncome, "2025-01-28", 5000),
			tx(model.KindIncome, "2025-02-28", 5000),
			tx(model.KindIncome, "2025-03-28", 5000),
		}
		p, ok := PredictSalary(txns, now)
		require.True(t, ok)
		assert.InDelta(t, 5000, p.PredictedIncome, 1e-6)
		assert.Equal(t, 1.0, p.Confidence)
	})

	t.Run("too little history", func(t *testing.T) {
		txns := []*model.Transaction{
			tx(model.KindIncome, "2025-01-28", 5000),
			tx(model.KindIncome, "2025-02-28", 5000),
		}
		_, ok := PredictSalary(txns, now)
		assert.False(t, ok)
	})
}

func TestPredictDebtPayoff(t *testing.T) {
	debts := []*model.Debt{{RemainingAmount: 2500}, {RemainingAmount: 500}}

	t.Run("cleared within horizon", func(t *testing.T) {
		txns := []*model.Transaction{
			tx(model.KindExpense, "2025-03-05", 1000),
			tx(model.KindExpense, "2025-04-05", 1000),
			tx(model.KindExpense, "2025-05-05", 1000),
		}
		p := PredictDebtPayoff(debts, txns, now)
		assert.Equal(t, 3000.0, p.TotalDebt)
		assert.Equal(t, DebtStatusCleared, p.Status)
		require.NotNil(t, p.MonthsToClear)
		assert.Equal(t, 3, *p.MonthsToClear)
		assert.Equal(t, "2025-09-01", *p.ExpectedClearDate)
		assert.Equal(t, 1000.0, p.AvgMonthlyRepayment)
		assert.Len(t, p.PredictedMonthlyRepayments, 60)
	})

	t.Run("declining trend never clears", func(t *testing.T) {
		txns := []*model.Transaction{
			tx(model.KindExpense, "2025-03-05", 300),
			tx(model.KindExpense, "2025-04-05", 200),
			tx(model.KindExpense, "2025-05-05", 100),
		}
		p := PredictDebtPayoff(debts, txns, now)
		assert.Equal(t, DebtStatusTooHigh, p.Status)
		assert.Nil(t, p.MonthsToClear)
		for _, v := range p.PredictedMonthlyRepayments {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	})

	t.Run("no history", func(t *testing.T) {
		p := PredictDebtPayoff(debts, nil, now)
		assert.Equal(t, DebtStatusNoData, p.Status)
		assert.Nil(t, p.ExpectedClearDate)
	})
}
