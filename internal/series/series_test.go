package series

import (
	"math/rand"
	"testing"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := model.ParseDate(s)
	return t
}

func txn(kind model.Kind, date string, amount float64) *model.Transaction {
	return &model.Transaction{Kind: kind, Date: day(date), Amount: amount, Category: "misc"}
}

func TestBuild(t *testing.T) {
	t.Run("sums same day and zero fills gaps", func(t *testing.T) {
		txns := []*model.Transaction{
			txn(model.KindExpense, "2025-01-01", 10),
			txn(model.KindExpense, "2025-01-01", 5),
			txn(model.KindExpense, "2025-01-04", 7),
			txn(model.KindIncome, "2025-01-02", 100),
		}
		d := Build(txns, Options{Kind: model.KindExpense, MinDays: 1})

		require.False(t, d.Synthetic)
		assert.Equal(t, day("2025-01-01"), d.Start)
		assert.Equal(t, []float64{15, 0, 0, 7}, d.Values)
		assert.Equal(t, day("2025-01-04"), d.End())
	})

	t.Run("both kinds when unfiltered", func(t *testing.T) {
		txns := []*model.Transaction{
			txn(model.KindExpense, "2025-01-01", 10),
			txn(model.KindIncome, "2025-01-01", 100),
		}
		d := Build(txns, Options{MinDays: 1})
		assert.Equal(t, []float64{110}, d.Values)
	})

	t.Run("corrupt records are skipped", func(t *testing.T) {
		txns := []*model.Transaction{
			txn(model.KindExpense, "2025-01-01", 10),
			{Kind: model.KindExpense, Amount: 99},
			txn(model.KindExpense, "2025-01-02", -5),
		}
		d := Build(txns, Options{Kind: model.KindExpense, MinDays: 1})
		assert.Equal(t, []float64{10}, d.Values)
		assert.Equal(t, 2, d.Skipped)
	})

	t.Run("short series is mirror padded", func(t *testing.T) {
		txns := []*model.Transaction{
			txn(model.KindExpense, "2025-01-10", 1),
			txn(model.KindExpense, "2025-01-11", 2),
			txn(model.KindExpense, "2025-01-12", 3),
		}
		d := Build(txns, Options{Kind: model.KindExpense, MinDays: 8})

		require.Equal(t, 8, d.Len())
		assert.Equal(t, 5, d.Padded)
		assert.Equal(t, day("2025-01-05"), d.Start)
		assert.Equal(t, day("2025-01-12"), d.End())
		// pad reads right-to-left as 1,2,3,1,2
		assert.Equal(t, []float64{2, 1, 3, 2, 1, 1, 2, 3}, d.Values)
	})

	t.Run("empty history is synthetic", func(t *testing.T) {
		now := time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC)
		d := Build(nil, Options{Kind: model.KindIncome, Now: now, Rand: rand.New(rand.NewSource(1))})

		require.True(t, d.Synthetic)
		assert.Equal(t, DefaultFallbackDays, d.Len())
		assert.Equal(t, day("2025-06-30"), d.End())
		for _, v := range d.Values {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	})
}

func TestSyntheticShape(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	income := Synthetic(model.KindIncome, 120, now, rand.New(rand.NewSource(7)))
	expense := Synthetic(model.KindExpense, 120, now, rand.New(rand.NewSource(7)))

	assert.Greater(t, income.Sum(), expense.Sum())

	firstWeek, lastWeek := 0.0, 0.0
	for i := 0; i < 7; i++ {
		firstWeek += income.Values[i]
		lastWeek += income.Values[len(income.Values)-1-i]
	}
	assert.Greater(t, lastWeek, firstWeek, "trend should rise")
}

func TestBuildCombined(t *testing.T) {
	txns := []*model.Transaction{
		txn(model.KindIncome, "2025-01-01", 100),
		txn(model.KindIncome, "2025-01-03", 50),
		txn(model.KindExpense, "2025-01-02", 30),
		txn(model.KindExpense, "2025-01-05", 20),
	}
	c := BuildCombined(txns, Options{MinDays: 1})

	require.Equal(t, 5, c.Income.Len())
	require.Equal(t, 5, c.Expense.Len())
	require.Equal(t, 5, c.Balance.Len())
	assert.Equal(t, day("2025-01-01"), c.Balance.Start)
	assert.Equal(t, []float64{100, 0, 50, 0, 0}, c.Income.Values)
	assert.Equal(t, []float64{0, 30, 0, 0, 20}, c.Expense.Values)
	assert.Equal(t, []float64{100, -30, 50, 0, -20}, c.Balance.Values)
	assert.False(t, c.Synthetic())
}

func TestReindex(t *testing.T) {
	d := &Daily{Start: day("2025-01-03"), Values: []float64{1, 2}}
	out := d.Reindex(day("2025-01-01"), day("2025-01-05"))
	assert.Equal(t, []float64{0, 0, 1, 2, 0}, out.Values)
}
