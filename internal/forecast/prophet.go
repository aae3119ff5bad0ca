package forecast

import (
	"context"
	"math"

	"github.com/castlemilk/pfinance/analytics/internal/series"
)

// prophetStrategy is an additive decomposition: a piecewise-linear trend with
// ridge-penalized changepoints plus weekly Fourier seasonality. On daily data
// the daily seasonal component is constant and folds into the intercept.
type prophetStrategy struct {
	fourierOrder       int
	maxChangepoints    int
	changepointRange   float64
	changepointPenalty float64
}

func (p *prophetStrategy) Name() string { return Prophet.String() }

func (p *prophetStrategy) Forecast(ctx context.Context, s *series.Daily, periods int) ([]float64, error) {
	n := s.Len()
	if n < 2*p.fourierOrder+2 {
		return nil, ErrInsufficientHistory
	}

	scale := 0.0
	for _, v := range s.Values {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		return nil, ErrDegenerateSeries
	}

	changepoints := p.changepoints(n)
	span := float64(n - 1)

	features := func(i int) []float64 {
		t := float64(i) / span
		row := []float64{1, t}
		for _, c := range changepoints {
			row = append(row, math.Max(0, t-c))
		}
		dow := float64(((dayIndex(s, i) % 7) + 7) % 7)
		for k := 1; k <= p.fourierOrder; k++ {
			angle := 2 * math.Pi * float64(k) * dow / 7
			row = append(row, math.Sin(angle), math.Cos(angle))
		}
		return row
	}

	rows := make([][]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = features(i)
		target[i] = s.Values[i] / scale
	}
	ridge := make([]float64, len(rows[0]))
	for j := range changepoints {
		ridge[2+j] = p.changepointPenalty
	}
	coef, err := leastSquares(rows, target, ridge)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]float64, periods)
	for h := 0; h < periods; h++ {
		out[h] = dot(coef, features(n+h)) * scale
	}
	return out, nil
}

// changepoints are spread uniformly over the first part of the history, on
// the same [0, 1] time scale as the trend feature.
func (p *prophetStrategy) changepoints(n int) []float64 {
	k := int(p.changepointRange * float64(n) / 3)
	if k > p.maxChangepoints {
		k = p.maxChangepoints
	}
	out := make([]float64, 0, k)
	for j := 1; j <= k; j++ {
		out = append(out, p.changepointRange*float64(j)/float64(k+1))
	}
	return out
}

// dayIndex returns days since the Unix epoch for position i, so weekly terms
// stay aligned to the calendar.
func dayIndex(s *series.Daily, i int) int {
	return int(s.DateAt(i).Unix() / 86400)
}
