package forecast

import (
	"context"
	"math"

	"github.com/castlemilk/pfinance/analytics/internal/series"
	"gonum.org/v1/gonum/optimize"
)

// holtWintersStrategy is additive-trend, additive-seasonality exponential
// smoothing. Smoothing weights are fitted by minimizing in-sample SSE.
type holtWintersStrategy struct {
	period int
}

func (h *holtWintersStrategy) Name() string { return Holt.String() }

type hwParams struct {
	alpha, beta, gamma float64
}

func (h *holtWintersStrategy) Forecast(ctx context.Context, s *series.Daily, periods int) ([]float64, error) {
	y := s.Values
	m := h.period
	if len(y) < 2*m {
		return nil, ErrInsufficientHistory
	}

	params := h.fit(y)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	level, trend, seasonal, _ := h.smooth(y, params)

	out := make([]float64, periods)
	n := len(y)
	for i := 1; i <= periods; i++ {
		out[i-1] = level + float64(i)*trend + seasonal[(n+i-1)%m]
	}
	return out, nil
}

// fit searches the weights in logit space so every candidate stays in (0, 1).
func (h *holtWintersStrategy) fit(y []float64) hwParams {
	initial := hwParams{alpha: 0.3, beta: 0.05, gamma: 0.1}
	toParams := func(x []float64) hwParams {
		return hwParams{alpha: sigmoid(x[0]), beta: sigmoid(x[1]), gamma: sigmoid(x[2])}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			_, _, _, sse := h.smooth(y, toParams(x))
			return sse
		},
	}
	x0 := []float64{logit(initial.alpha), logit(initial.beta), logit(initial.gamma)}
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{FuncEvaluations: 600}, &optimize.NelderMead{})
	if result == nil || !allFinite(result.X) {
		return initial
	}
	if err != nil && result.F > problem.Func(x0) {
		return initial
	}
	return toParams(result.X)
}

// smooth runs the recursions and returns the final state plus the one-step
// ahead squared error.
func (h *holtWintersStrategy) smooth(y []float64, p hwParams) (level, trend float64, seasonal []float64, sse float64) {
	m := h.period
	var first, second float64
	for i := 0; i < m; i++ {
		first += y[i]
		second += y[m+i]
	}
	first /= float64(m)
	second /= float64(m)

	level = first
	trend = (second - first) / float64(m)
	seasonal = make([]float64, m)
	for i := 0; i < m; i++ {
		seasonal[i] = y[i] - first
	}

	for t, obs := range y {
		idx := t % m
		predicted := level + trend + seasonal[idx]
		e := obs - predicted
		sse += e * e

		prevLevel := level
		level = p.alpha*(obs-seasonal[idx]) + (1-p.alpha)*(level+trend)
		trend = p.beta*(level-prevLevel) + (1-p.beta)*trend
		seasonal[idx] = p.gamma*(obs-level) + (1-p.gamma)*seasonal[idx]
	}
	return level, trend, seasonal, sse
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }
