package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// leastSquares solves min ||Xb - y|| by QR decomposition. ridge adds an L2
// penalty per column (zero entries are unpenalized).
func leastSquares(rows [][]float64, y []float64, ridge []float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, ErrInsufficientHistory
	}
	cols := len(rows[0])

	extra := 0
	for _, r := range ridge {
		if r > 0 {
			extra++
		}
	}
	n := len(rows) + extra
	if n < cols {
		return nil, fmt.Errorf("%w: %d rows for %d coefficients", ErrInsufficientHistory, n, cols)
	}

	x := mat.NewDense(n, cols, nil)
	target := mat.NewVecDense(n, nil)
	for i, r := range rows {
		x.SetRow(i, r)
		target.SetVec(i, y[i])
	}
	i := len(rows)
	for j, r := range ridge {
		if r > 0 {
			x.Set(i, j, math.Sqrt(r))
			i++
		}
	}

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, target); err != nil {
		return nil, fmt.Errorf("failed to solve least squares: %w", err)
	}
	out := make([]float64, cols)
	for j := range out {
		out[j] = beta.AtVec(j)
	}
	return out, nil
}

// difference returns y[t] - y[t-lag].
func difference(y []float64, lag int) []float64 {
	if len(y) <= lag {
		return nil
	}
	out := make([]float64, len(y)-lag)
	for t := lag; t < len(y); t++ {
		out[t-lag] = y[t] - y[t-lag]
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func isConstant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
