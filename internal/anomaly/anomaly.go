// Package anomaly flags expense transactions that deviate sharply from the
// user's per-category spending profile.
package anomaly

import (
	"math"
	"strings"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Thresholds are the OR-combined flagging rules.
type Thresholds struct {
	// ZScore flags amounts this many category standard deviations above the mean.
	ZScore float64 `toml:"z_score"`
	// CategoryRatio flags amounts at least this multiple of the category mean.
	CategoryRatio float64 `toml:"category_ratio"`
	// OverallMultiplier flags amounts at least this multiple of the overall mean.
	OverallMultiplier float64 `toml:"overall_multiplier"`
}

// DefaultThresholds returns the empirically tuned defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{ZScore: 2.0, CategoryRatio: 1.6, OverallMultiplier: 1.6}
}

// Stats summarises one category.
type Stats struct {
	Mean   float64
	StdDev float64
}

// Profile is the spending baseline a transaction is compared against.
type Profile struct {
	Categories  map[string]Stats
	OverallMean float64
	// OverallThreshold is +Inf when the overall mean is not positive.
	OverallThreshold float64
}

// Lookup returns the category stats, falling back to the overall mean with
// zero deviation for an unknown category.
func (p *Profile) Lookup(category string) Stats {
	if st, ok := p.Categories[category]; ok {
		return st
	}
	return Stats{Mean: p.OverallMean}
}

// BuildProfile computes per-category mean and population standard deviation
// (zero for single-item categories) over every valid expense.
func BuildProfile(expenses []*model.Transaction, th Thresholds) Profile {
	byCategory := make(map[string][]float64)
	var all []float64
	for _, t := range expenses {
		if !t.Valid() || t.Kind != model.KindExpense {
			continue
		}
		byCategory[t.Category] = append(byCategory[t.Category], t.Amount)
		all = append(all, t.Amount)
	}

	p := Profile{
		Categories:       make(map[string]Stats, len(byCategory)),
		OverallThreshold: math.Inf(1),
	}
	if len(all) > 0 {
		p.OverallMean = stat.Mean(all, nil)
	}
	if p.OverallMean > 0 {
		p.OverallThreshold = th.OverallMultiplier * p.OverallMean
	}
	for cat, vals := range byCategory {
		st := Stats{Mean: stat.Mean(vals, nil)}
		if len(vals) > 1 {
			_, st.StdDev = stat.PopMeanStdDev(vals, nil)
		}
		p.Categories[cat] = st
	}
	return p
}

// Finding is a transaction that met at least one threshold.
type Finding struct {
	Transaction *model.Transaction
	Score       float64
	Reason      string
	ZScore      float64
	Ratio       float64
}

// Evaluate applies the thresholds to one amount.
func Evaluate(amount float64, st Stats, overallThreshold float64, th Thresholds) (Finding, bool) {
	var z, ratio float64
	if st.StdDev != 0 {
		z = (amount - st.Mean) / st.StdDev
	}
	if st.Mean > 0 {
		ratio = amount / st.Mean
	}

	byZ := st.StdDev > 0 && z >= th.ZScore
	byRatio := ratio >= th.CategoryRatio
	byOverall := amount >= overallThreshold
	if !byZ && !byRatio && !byOverall {
		return Finding{}, false
	}

	var reasons []string
	if byZ {
		reasons = append(reasons, "z≈"+formatRounded(z))
	}
	if byRatio && st.Mean > 0 {
		reasons = append(reasons, formatRounded(ratio)+"x category avg")
	}
	if byOverall && !math.IsInf(overallThreshold, 1) {
		reasons = append(reasons, ">"+formatRounded(th.OverallMultiplier)+"x overall avg")
	}
	reason := strings.Join(reasons, "; ")
	if reason == "" {
		reason = "High deviation"
	}

	score := ratio
	if st.StdDev > 0 && z > score {
		score = z
	}
	return Finding{Score: score, Reason: reason, ZScore: z, Ratio: ratio}, true
}

// Detect evaluates every valid expense against the profile built from the
// same set. Corrupt records are counted in skipped.
func Detect(expenses []*model.Transaction, th Thresholds) (findings []Finding, skipped int) {
	profile := BuildProfile(expenses, th)
	for _, t := range expenses {
		if !t.Valid() {
			skipped++
			continue
		}
		if t.Kind != model.KindExpense {
			continue
		}
		f, ok := Evaluate(t.Amount, profile.Lookup(t.Category), profile.OverallThreshold, th)
		if !ok {
			continue
		}
		f.Transaction = t
		findings = append(findings, f)
	}
	return findings, skipped
}

func formatRounded(v float64) string {
	return decimal.NewFromFloat(v).RoundBank(2).String()
}
