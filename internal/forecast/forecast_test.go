package forecast

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // a Monday

// seasonalSeries is a rising trend with a weekly cycle and optional noise.
func seasonalSeries(n int, noise float64, seed int64) *series.Daily {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = 500 + 2*float64(i) + 80*math.Sin(2*math.Pi*float64(i)/7) + noise*rng.NormFloat64()
	}
	return &series.Daily{Start: start, Values: values}
}

func testDispatcher() *Dispatcher {
	return NewDispatcher(DefaultConfig(), nil)
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		in    string
		want  Model
		known bool
	}{
		{"", Holt, true},
		{"holt", Holt, true},
		{"HW", Holt, true},
		{"Holt_Winters", Holt, true},
		{"expsmooth", Holt, true},
		{"ARIMA", ARIMA, true},
		{"sarima", SARIMA, true},
		{"Prophet", Prophet, true},
		{"gbrt", GBRT, true},
		{"xgb", GBRT, true},
		{"Tree", GBRT, true},
		{"lstm", Holt, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, known := ParseModel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestForecastLengthInvariant(t *testing.T) {
	d := testDispatcher()
	s := seasonalSeries(90, 25, 1)

	for _, m := range []Model{Holt, ARIMA, SARIMA, Prophet, GBRT} {
		for _, periods := range []int{1, 7, 30, 95} {
			res := d.Forecast(context.Background(), s, m, periods)
			require.Len(t, res.Points, periods, "model %s periods %d", m, periods)
			assert.Equal(t, s.End().AddDate(0, 0, 1), res.Points[0].Date)
			for i := 1; i < len(res.Points); i++ {
				assert.Equal(t, res.Points[i-1].Date.AddDate(0, 0, 1), res.Points[i].Date)
			}
		}
	}
}

func TestForecastShortSeriesDampening(t *testing.T) {
	d := testDispatcher()
	s := &series.Daily{Start: start, Values: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90}}

	for _, m := range []Model{Holt, ARIMA, SARIMA, Prophet, GBRT} {
		res := d.Forecast(context.Background(), s, m, 5)
		require.Len(t, res.Points, 5)
		assert.Equal(t, UsedDampedMean, res.Used)
		for _, p := range res.Points {
			// (90 + 50) / 2
			assert.InDelta(t, 70.0, p.Value, 1e-9)
		}
	}
}

func TestForecastFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("constant input repeats last value", func(t *testing.T) {
		d := testDispatcher()
		values := make([]float64, 40)
		for i := range values {
			values[i] = 42
		}
		s := &series.Daily{Start: start, Values: values}

		for _, m := range []Model{Holt, ARIMA, SARIMA, Prophet, GBRT} {
			res := d.Forecast(ctx, s, m, 12)
			require.Len(t, res.Points, 12)
			assert.True(t, res.Degraded)
			assert.Equal(t, UsedLastValue, res.Used)
			for _, p := range res.Points {
				assert.Equal(t, 42.0, p.Value)
			}
		}
	})

	t.Run("panicking strategy is contained", func(t *testing.T) {
		d := testDispatcher()
		d.strategy = func(Model) Strategy { return panicStrategy{} }
		s := seasonalSeries(40, 0, 1)

		res := d.Forecast(ctx, s, ARIMA, 3)
		require.Len(t, res.Points, 3)
		assert.True(t, res.Degraded)
		assert.Contains(t, res.FitError, "panicked")
		assert.Equal(t, s.Last(), res.Points[2].Value)
	})

	t.Run("slow fit is bounded by timeout", func(t *testing.T) {
		d := NewDispatcher(Config{FitTimeout: 20 * time.Millisecond}, nil)
		d.strategy = func(Model) Strategy { return slowStrategy{delay: time.Second} }
		s := seasonalSeries(40, 0, 1)

		began := time.Now()
		res := d.Forecast(ctx, s, Prophet, 4)
		assert.Less(t, time.Since(began), 500*time.Millisecond)
		require.Len(t, res.Points, 4)
		assert.True(t, res.Degraded)
		assert.Equal(t, s.Last(), res.Points[0].Value)
	})

	t.Run("non-finite output falls back", func(t *testing.T) {
		d := testDispatcher()
		d.strategy = func(Model) Strategy { return nanStrategy{} }
		s := seasonalSeries(40, 0, 1)

		res := d.Forecast(ctx, s, Holt, 2)
		assert.True(t, res.Degraded)
		assert.Equal(t, s.Last(), res.Points[1].Value)
	})
}

func TestForecastGBRTFallsBackToHolt(t *testing.T) {
	d := testDispatcher()

	short := seasonalSeries(40, 10, 2)
	res := d.Forecast(context.Background(), short, GBRT, 7)
	assert.Equal(t, "holt", res.Used)
	assert.Equal(t, GBRT, res.Requested)

	long := seasonalSeries(60, 10, 2)
	res = d.Forecast(context.Background(), long, GBRT, 7)
	assert.Equal(t, "gbrt", res.Used)
	assert.False(t, res.Degraded)
}

func TestHoltTracksTrendAndSeason(t *testing.T) {
	s := seasonalSeries(84, 0, 0)
	res := testDispatcher().Forecast(context.Background(), s, Holt, 14)
	require.False(t, res.Degraded, res.FitError)

	for i, p := range res.Points {
		idx := float64(84 + i)
		want := 500 + 2*idx + 80*math.Sin(2*math.Pi*idx/7)
		assert.InEpsilon(t, want, p.Value, 0.1, "day %d", i)
	}
}

func TestProphetTracksTrendAndSeason(t *testing.T) {
	s := seasonalSeries(70, 0, 0)
	res := testDispatcher().Forecast(context.Background(), s, Prophet, 7)
	require.False(t, res.Degraded, res.FitError)

	for i, p := range res.Points {
		idx := float64(70 + i)
		want := 500 + 2*idx + 80*math.Sin(2*math.Pi*idx/7)
		assert.InEpsilon(t, want, p.Value, 0.1, "day %d", i)
	}
}

func TestNegativePredictionsAreNotClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 40)
	for i := range values {
		values[i] = 400 - 10*float64(i) + 3*rng.NormFloat64()
	}
	s := &series.Daily{Start: start, Values: values}

	res := testDispatcher().Forecast(context.Background(), s, ARIMA, 30)
	require.False(t, res.Degraded, res.FitError)
	assert.Less(t, res.Points[29].Value, 0.0)
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panic" }
func (panicStrategy) Forecast(context.Context, *series.Daily, int) ([]float64, error) {
	panic("boom")
}

type slowStrategy struct{ delay time.Duration }

func (slowStrategy) Name() string { return "slow" }
func (s slowStrategy) Forecast(_ context.Context, _ *series.Daily, periods int) ([]float64, error) {
	time.Sleep(s.delay)
	return make([]float64, periods), nil
}

type nanStrategy struct{}

func (nanStrategy) Name() string { return "nan" }
func (nanStrategy) Forecast(_ context.Context, _ *series.Daily, periods int) ([]float64, error) {
	out := make([]float64, periods)
	out[0] = math.NaN()
	return out, nil
}
