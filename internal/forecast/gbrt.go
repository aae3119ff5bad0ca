package forecast

import (
	"context"
	"sort"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/series"
)

// gbrtLags are the lag features, in days.
var gbrtLags = []int{1, 2, 3, 7, 14}

// maxLag is the number of leading days with incomplete lag features.
const maxLag = 14

// gbrtStrategy is gradient-boosted regression trees with squared loss over
// calendar and lag features. Prediction is autoregressive: each predicted day
// is appended to the working series before the next day's lags are read.
type gbrtStrategy struct {
	trees        int
	depth        int
	learningRate float64
}

func (g *gbrtStrategy) Name() string { return GBRT.String() }

// featureRows is the number of complete training rows a series yields.
func featureRows(s *series.Daily) int {
	if s.Len() <= maxLag {
		return 0
	}
	return s.Len() - maxLag
}

func gbrtFeatures(date time.Time, values []float64, t int) []float64 {
	row := []float64{
		float64(date.Weekday()),
		float64(date.Day()),
		float64(date.Month()),
	}
	for _, lag := range gbrtLags {
		row = append(row, values[t-lag])
	}
	return row
}

func (g *gbrtStrategy) Forecast(ctx context.Context, s *series.Daily, periods int) ([]float64, error) {
	if featureRows(s) < 2 {
		return nil, ErrInsufficientHistory
	}

	var x [][]float64
	var y []float64
	for t := maxLag; t < s.Len(); t++ {
		x = append(x, gbrtFeatures(s.DateAt(t), s.Values, t))
		y = append(y, s.Values[t])
	}

	ensemble, err := g.fit(ctx, x, y)
	if err != nil {
		return nil, err
	}

	work := append([]float64(nil), s.Values...)
	out := make([]float64, periods)
	for h := 0; h < periods; h++ {
		t := len(work)
		v := ensemble.predict(gbrtFeatures(s.DateAt(t), work, t))
		work = append(work, v)
		out[h] = v
	}
	return out, nil
}

type gbrtEnsemble struct {
	base         float64
	learningRate float64
	trees        []*treeNode
}

func (e *gbrtEnsemble) predict(row []float64) float64 {
	v := e.base
	for _, t := range e.trees {
		v += e.learningRate * t.predict(row)
	}
	return v
}

func (g *gbrtStrategy) fit(ctx context.Context, x [][]float64, y []float64) (*gbrtEnsemble, error) {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	ens := &gbrtEnsemble{base: mean, learningRate: g.learningRate}
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = mean
	}
	resid := make([]float64, len(y))
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}

	for m := 0; m < g.trees; m++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range y {
			resid[i] = y[i] - pred[i]
		}
		tree := buildTree(x, resid, append([]int(nil), idx...), g.depth)
		ens.trees = append(ens.trees, tree)
		for i := range pred {
			pred[i] += g.learningRate * tree.predict(x[i])
		}
	}
	return ens, nil
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// buildTree grows a regression tree by exhaustive best-split search on the
// squared error.
func buildTree(x [][]float64, r []float64, idx []int, depth int) *treeNode {
	var sum float64
	for _, i := range idx {
		sum += r[i]
	}
	leaf := &treeNode{leaf: true, value: sum / float64(len(idx))}
	if depth == 0 || len(idx) < 2 {
		return leaf
	}

	bestGain := 0.0
	bestFeature, bestPos := -1, 0
	var bestThreshold float64
	total := float64(len(idx))

	for f := range x[idx[0]] {
		sort.Slice(idx, func(a, b int) bool { return x[idx[a]][f] < x[idx[b]][f] })
		var leftSum float64
		for pos := 0; pos < len(idx)-1; pos++ {
			leftSum += r[idx[pos]]
			lo, hi := x[idx[pos]][f], x[idx[pos+1]][f]
			if lo == hi {
				continue
			}
			nl := float64(pos + 1)
			nr := total - nl
			rightSum := sum - leftSum
			gain := leftSum*leftSum/nl + rightSum*rightSum/nr - sum*sum/total
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestPos = pos
				bestThreshold = (lo + hi) / 2
			}
		}
	}
	if bestFeature < 0 {
		return leaf
	}

	sort.Slice(idx, func(a, b int) bool { return x[idx[a]][bestFeature] < x[idx[b]][bestFeature] })
	left := append([]int(nil), idx[:bestPos+1]...)
	right := append([]int(nil), idx[bestPos+1:]...)
	return &treeNode{
		feature:   bestFeature,
		threshold: bestThreshold,
		left:      buildTree(x, r, left, depth-1),
		right:     buildTree(x, r, right, depth-1),
	}
}
