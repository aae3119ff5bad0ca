// Package recurring groups expenses into (category, rounded amount) buckets
// and labels each bucket's cadence.
package recurring

import (
	"fmt"
	"sort"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/shopspring/decimal"
)

// Options tunes the miner.
type Options struct {
	// MinOccurrences is the smallest bucket considered recurring.
	MinOccurrences int `toml:"min_occurrences"`
	// BucketWidth is the rounding step applied to amounts.
	BucketWidth float64 `toml:"bucket_width"`
}

// DefaultOptions returns a width of 100 and three occurrences.
func DefaultOptions() Options {
	return Options{MinOccurrences: 3, BucketWidth: 100}
}

// Candidate is a detected recurring bucket.
type Candidate struct {
	Category      string
	ApproxAmount  int64
	PatternKey    string
	Frequency     model.Frequency
	AverageAmount float64
	AverageGap    float64
	Occurrences   int
	LastSeen      time.Time
}

// ApproxAmount rounds amount to the nearest multiple of width, ties to even.
func ApproxAmount(amount, width float64) int64 {
	steps := decimal.NewFromFloat(amount / width).RoundBank(0)
	return steps.Mul(decimal.NewFromFloat(width)).IntPart()
}

// PatternKey is the persisted identity of a bucket within a category.
func PatternKey(category string, approx int64) string {
	return fmt.Sprintf("%s ~%d", category, approx)
}

type window struct{ lo, hi float64 }

var (
	weeklyWindow  = window{5, 10}
	monthlyWindow = window{20, 40}
)

func (w window) contains(v float64) bool { return v >= w.lo && v <= w.hi }

// Classify labels an average gap in days.
func Classify(avgGap float64) model.Frequency {
	switch {
	case weeklyWindow.contains(avgGap):
		return model.FrequencyWeekly
	case monthlyWindow.contains(avgGap):
		return model.FrequencyMonthly
	default:
		return model.FrequencyIrregular
	}
}

// ClassifyGaps labels a bucket by the average of its consecutive gaps.
// Individual gaps may fall outside the window, so a skipped week still reads
// as Weekly.
func ClassifyGaps(gaps []float64) model.Frequency {
	if len(gaps) == 0 {
		return model.FrequencyIrregular
	}
	var sum float64
	for _, g := range gaps {
		sum += g
	}
	return Classify(sum / float64(len(gaps)))
}

type bucketKey struct {
	category string
	approx   int64
}

// Mine returns candidates sorted by category then amount. Corrupt records
// are counted in skipped.
func Mine(expenses []*model.Transaction, opts Options) (candidates []Candidate, skipped int) {
	if opts.MinOccurrences <= 0 {
		opts.MinOccurrences = DefaultOptions().MinOccurrences
	}
	if opts.BucketWidth <= 0 {
		opts.BucketWidth = DefaultOptions().BucketWidth
	}

	buckets := make(map[bucketKey][]*model.Transaction)
	for _, t := range expenses {
		if !t.Valid() {
			skipped++
			continue
		}
		if t.Kind != model.KindExpense {
			continue
		}
		key := bucketKey{category: t.Category, approx: ApproxAmount(t.Amount, opts.BucketWidth)}
		buckets[key] = append(buckets[key], t)
	}

	for key, txns := range buckets {
		if len(txns) < opts.MinOccurrences || len(txns) < 2 {
			continue
		}
		sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })

		var gapSum, amountSum float64
		gaps := make([]float64, 0, len(txns)-1)
		for i, t := range txns {
			amountSum += t.Amount
			if i > 0 {
				gap := float64(daysBetween(txns[i-1].Day(), t.Day()))
				gaps = append(gaps, gap)
				gapSum += gap
			}
		}
		avgGap := gapSum / float64(len(gaps))

		candidates = append(candidates, Candidate{
			Category:      key.category,
			ApproxAmount:  key.approx,
			PatternKey:    PatternKey(key.category, key.approx),
			Frequency:     ClassifyGaps(gaps),
			AverageAmount: amountSum / float64(len(txns)),
			AverageGap:    avgGap,
			Occurrences:   len(txns),
			LastSeen:      txns[len(txns)-1].Day(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Category != candidates[j].Category {
			return candidates[i].Category < candidates[j].Category
		}
		return candidates[i].ApproxAmount < candidates[j].ApproxAmount
	})
	return candidates, skipped
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
