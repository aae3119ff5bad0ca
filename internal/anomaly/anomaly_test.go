package anomaly

import (
	"math"
	"testing"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expense(id, category string, amount float64) *model.Transaction {
	return &model.Transaction{
		ID:       id,
		Kind:     model.KindExpense,
		Category: category,
		Amount:   amount,
		Date:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEvaluate(t *testing.T) {
	th := DefaultThresholds()

	t.Run("z-score against prior dining stats", func(t *testing.T) {
		// [500, 520, 480, 510]: mean 502.5, population stdev 14.79
		st := Stats{Mean: 502.5, StdDev: math.Sqrt(218.75)}
		f, ok := Evaluate(600, st, math.Inf(1), th)

		require.True(t, ok)
		assert.InDelta(t, 6.59, f.ZScore, 0.01)
		assert.InDelta(t, 1.19, f.Ratio, 0.01)
		assert.Equal(t, f.ZScore, f.Score)
		assert.Equal(t, "z≈6.59", f.Reason)
	})

	t.Run("overall threshold", func(t *testing.T) {
		f, ok := Evaluate(5000, Stats{Mean: 5000}, 1.6*600, th)
		require.True(t, ok)
		assert.Equal(t, ">1.6x overall avg", f.Reason)
		assert.Equal(t, 1.0, f.Score)
	})

	t.Run("category ratio", func(t *testing.T) {
		f, ok := Evaluate(180, Stats{Mean: 100}, math.Inf(1), th)
		require.True(t, ok)
		assert.Equal(t, "1.8x category avg", f.Reason)
		assert.InDelta(t, 1.8, f.Score, 1e-9)
	})

	t.Run("all reasons joined", func(t *testing.T) {
		f, ok := Evaluate(400, Stats{Mean: 100, StdDev: 50}, 200, th)
		require.True(t, ok)
		assert.Equal(t, "z≈6; 4x category avg; >1.6x overall avg", f.Reason)
		assert.Equal(t, 6.0, f.Score)
	})

	t.Run("no formattable reason falls back to default", func(t *testing.T) {
		loose := Thresholds{ZScore: 2, CategoryRatio: 0, OverallMultiplier: 1.6}
		f, ok := Evaluate(0, Stats{}, math.Inf(1), loose)
		require.True(t, ok)
		assert.Equal(t, "High deviation", f.Reason)
		assert.Equal(t, 0.0, f.Score)
	})

	t.Run("ordinary amount", func(t *testing.T) {
		_, ok := Evaluate(105, Stats{Mean: 100, StdDev: 10}, 1000, th)
		assert.False(t, ok)
	})

	t.Run("thresholds are configurable", func(t *testing.T) {
		strict := Thresholds{ZScore: 0.4, CategoryRatio: 10, OverallMultiplier: 10}
		_, ok := Evaluate(105, Stats{Mean: 100, StdDev: 10}, 1000, strict)
		assert.True(t, ok)
	})
}

func TestBuildProfile(t *testing.T) {
	txns := []*model.Transaction{
		expense("1", "dining", 500),
		expense("2", "dining", 520),
		expense("3", "dining", 480),
		expense("4", "dining", 510),
		expense("5", "rent", 2000),
		{ID: "bad", Kind: model.KindExpense, Category: "dining", Amount: math.NaN(), Date: time.Now()},
	}
	p := BuildProfile(txns, DefaultThresholds())

	assert.InDelta(t, 502.5, p.Categories["dining"].Mean, 1e-9)
	assert.InDelta(t, 14.79, p.Categories["dining"].StdDev, 0.01)
	assert.Equal(t, 0.0, p.Categories["rent"].StdDev)
	assert.InDelta(t, 802.0, p.OverallMean, 1e-9)
	assert.InDelta(t, 1.6*802, p.OverallThreshold, 1e-9)

	unknown := p.Lookup("travel")
	assert.Equal(t, p.OverallMean, unknown.Mean)
	assert.Equal(t, 0.0, unknown.StdDev)

	empty := BuildProfile(nil, DefaultThresholds())
	assert.True(t, math.IsInf(empty.OverallThreshold, 1))
}

func TestDetect(t *testing.T) {
	txns := []*model.Transaction{
		expense("a", "groceries", 100),
		expense("b", "groceries", 110),
		expense("c", "groceries", 90),
		expense("d", "groceries", 105),
		expense("e", "groceries", 95),
		expense("f", "groceries", 100),
		expense("g", "groceries", 5000),
		{ID: "corrupt", Kind: model.KindExpense, Category: "groceries", Amount: -3, Date: time.Now()},
	}

	findings, skipped := Detect(txns, DefaultThresholds())
	assert.Equal(t, 1, skipped)
	require.Len(t, findings, 1)
	assert.Equal(t, "g", findings[0].Transaction.ID)
	assert.Contains(t, findings[0].Reason, "overall avg")
}
