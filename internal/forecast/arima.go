package forecast

import (
	"context"

	"github.com/castlemilk/pfinance/analytics/internal/series"
)

// arimaStrategy is ARIMA(p,1,0) estimated by conditional least squares on the
// first difference. The order shrinks for short histories.
type arimaStrategy struct {
	maxOrder int
}

func (a *arimaStrategy) Name() string { return ARIMA.String() }

func (a *arimaStrategy) Forecast(ctx context.Context, s *series.Daily, periods int) ([]float64, error) {
	d := difference(s.Values, 1)
	p := a.maxOrder
	if short := (len(d) - 2) / 4; short < p {
		p = short
	}
	if p < 1 {
		return nil, ErrInsufficientHistory
	}

	rows := make([][]float64, 0, len(d)-p)
	target := make([]float64, 0, len(d)-p)
	for t := p; t < len(d); t++ {
		row := make([]float64, p+1)
		row[0] = 1
		for k := 1; k <= p; k++ {
			row[k] = d[t-k]
		}
		rows = append(rows, row)
		target = append(target, d[t])
	}
	coef, err := leastSquares(rows, target, nil)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	work := append([]float64(nil), d...)
	level := s.Last()
	out := make([]float64, periods)
	for h := 0; h < periods; h++ {
		next := coef[0]
		for k := 1; k <= p; k++ {
			next += coef[k] * work[len(work)-k]
		}
		work = append(work, next)
		level += next
		out[h] = level
	}
	return out, nil
}

// sarimaStrategy is SARIMA(1,1,1)(1,1,1)s estimated by the Hannan-Rissanen
// procedure: a long autoregression supplies residual estimates, then the
// seasonal and non-seasonal AR and MA terms are regressed jointly on the
// doubly differenced series.
type sarimaStrategy struct {
	period int
}

func (s *sarimaStrategy) Name() string { return SARIMA.String() }

func (s *sarimaStrategy) Forecast(ctx context.Context, d *series.Daily, periods int) ([]float64, error) {
	m := s.period
	y := d.Values
	w := difference(difference(y, 1), m)

	k := len(w) / 4
	if k > 2*m {
		k = 2 * m
	}
	if k < 2 {
		return nil, ErrInsufficientHistory
	}

	// stage 1: long AR for innovations
	longRows := make([][]float64, 0, len(w)-k)
	longTarget := make([]float64, 0, len(w)-k)
	for t := k; t < len(w); t++ {
		row := make([]float64, k)
		for j := 1; j <= k; j++ {
			row[j-1] = w[t-j]
		}
		longRows = append(longRows, row)
		longTarget = append(longTarget, w[t])
	}
	longCoef, err := leastSquares(longRows, longTarget, nil)
	if err != nil {
		return nil, err
	}
	resid := make([]float64, len(w))
	for t := k; t < len(w); t++ {
		resid[t] = w[t] - dot(longCoef, longRows[t-k])
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// stage 2: AR lags 1, m, m+1 and MA lags 1, m, m+1
	lags := []int{1, m, m + 1}
	start := k + m + 1
	rows := make([][]float64, 0, len(w)-start)
	target := make([]float64, 0, len(w)-start)
	for t := start; t < len(w); t++ {
		rows = append(rows, sarimaRow(w, resid, t, lags))
		target = append(target, w[t])
	}
	coef, err := leastSquares(rows, target, nil)
	if err != nil {
		return nil, err
	}

	// innovations are zero beyond the sample
	for h := 0; h < periods; h++ {
		t := len(w)
		w = append(w, dot(coef, sarimaRow(w, resid, t, lags)))
		resid = append(resid, 0)
	}

	// undo (1-B)(1-B^m)
	full := append([]float64(nil), y...)
	n := len(y)
	out := make([]float64, periods)
	for h := 0; h < periods; h++ {
		t := n + h
		v := w[t-m-1] + full[t-1] + full[t-m] - full[t-m-1]
		full = append(full, v)
		out[h] = v
	}
	return out, nil
}

func sarimaRow(w, resid []float64, t int, lags []int) []float64 {
	row := make([]float64, 0, 2*len(lags))
	for _, l := range lags {
		row = append(row, w[t-l])
	}
	for _, l := range lags {
		row = append(row, resid[t-l])
	}
	return row
}
