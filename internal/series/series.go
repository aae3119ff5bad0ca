// Package series turns irregular transaction histories into contiguous daily
// value series.
package series

import (
	"math"
	"math/rand"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
)

const (
	DefaultMinDays      = 30
	DefaultFallbackDays = 120

	syntheticNoiseSigma = 90.0
)

// Daily is a gap-free series with one value per calendar day starting at Start.
type Daily struct {
	Start  time.Time
	Values []float64
	// Synthetic is set when the values were generated rather than observed.
	Synthetic bool
	// Padded is the number of mirrored days prepended to reach the minimum length.
	Padded int
	// Skipped counts corrupt source records that were ignored.
	Skipped int
}

// Len returns the number of days in the series.
func (d *Daily) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Values)
}

// End returns the date of the last value.
func (d *Daily) End() time.Time {
	return d.DateAt(len(d.Values) - 1)
}

// DateAt returns the calendar date of index i.
func (d *Daily) DateAt(i int) time.Time {
	return d.Start.AddDate(0, 0, i)
}

// Last returns the final observed value, or 0 for an empty series.
func (d *Daily) Last() float64 {
	if d.Len() == 0 {
		return 0
	}
	return d.Values[len(d.Values)-1]
}

// Sum returns the total of all values.
func (d *Daily) Sum() float64 {
	var total float64
	for _, v := range d.Values {
		total += v
	}
	return total
}

// Reindex returns a copy of d spanning [start, end] with zero fill outside
// the original range.
func (d *Daily) Reindex(start, end time.Time) *Daily {
	start, end = model.Day(start), model.Day(end)
	n := int(end.Sub(start).Hours()/24) + 1
	if n < 0 {
		n = 0
	}
	out := &Daily{
		Start:     start,
		Values:    make([]float64, n),
		Synthetic: d.Synthetic,
		Padded:    d.Padded,
		Skipped:   d.Skipped,
	}
	offset := int(d.Start.Sub(start).Hours() / 24)
	for i, v := range d.Values {
		j := i + offset
		if j >= 0 && j < n {
			out.Values[j] = v
		}
	}
	return out
}

// Options controls how a series is built.
type Options struct {
	// Kind restricts the source records; empty means both kinds.
	Kind         model.Kind
	MinDays      int
	FallbackDays int
	// Now anchors the synthetic window. Defaults to time.Now.
	Now time.Time
	// Rand drives synthetic noise. A fresh source is created per call when nil.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.MinDays <= 0 {
		o.MinDays = DefaultMinDays
	}
	if o.FallbackDays <= 0 {
		o.FallbackDays = DefaultFallbackDays
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// Build sums transactions per day over the earliest..latest date range.
// With no usable records it returns a synthetic series flagged as such; a
// series shorter than MinDays is left-padded by mirroring its first values.
func Build(txns []*model.Transaction, opts Options) *Daily {
	opts = opts.withDefaults()

	byDay := make(map[time.Time]float64)
	var first, last time.Time
	skipped := 0
	for _, t := range txns {
		if !t.Valid() {
			skipped++
			continue
		}
		if opts.Kind != "" && t.Kind != opts.Kind {
			continue
		}
		day := t.Day()
		byDay[day] += t.Amount
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}

	if len(byDay) == 0 {
		d := Synthetic(opts.Kind, opts.FallbackDays, opts.Now, opts.Rand)
		d.Skipped = skipped
		return d
	}

	d := &Daily{Start: first, Skipped: skipped}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		d.Values = append(d.Values, byDay[day])
	}
	return mirrorPad(d, opts.MinDays)
}

// Synthetic generates a plausible series of n days ending on now: a linear
// trend, a weekly oscillation and Gaussian noise bounded to three sigma,
// clamped to non-negative.
func Synthetic(kind model.Kind, n int, now time.Time, rng *rand.Rand) *Daily {
	if n <= 0 {
		n = DefaultFallbackDays
	}
	end := model.Day(now)
	d := &Daily{
		Start:     end.AddDate(0, 0, -(n - 1)),
		Values:    make([]float64, n),
		Synthetic: true,
	}
	for i := 0; i < n; i++ {
		base := 600.0
		if n > 1 {
			base += 600.0 * float64(i) / float64(n-1)
		}
		week := (math.Sin(2*math.Pi*float64(i)/7) + 1) * 180
		noise := rng.NormFloat64() * syntheticNoiseSigma
		noise = math.Max(-3*syntheticNoiseSigma, math.Min(3*syntheticNoiseSigma, noise))

		var v float64
		switch kind {
		case model.KindIncome:
			v = base + 0.6*week + noise + 200
		case model.KindExpense:
			v = 0.8*base + week + noise
		default:
			v = base + week + noise
		}
		d.Values[i] = math.Max(0, v)
	}
	return d
}

// mirrorPad prepends reflected values until the series reaches minDays. The
// day before Start repeats day 0, the day before that repeats day 1, wrapping
// around when the series is shorter than the padding.
func mirrorPad(d *Daily, minDays int) *Daily {
	n := len(d.Values)
	need := minDays - n
	if need <= 0 || n == 0 {
		return d
	}
	values := make([]float64, need+n)
	for j := 0; j < need; j++ {
		values[need-1-j] = d.Values[j%n]
	}
	copy(values[need:], d.Values)

	d.Start = d.Start.AddDate(0, 0, -need)
	d.Values = values
	d.Padded = need
	return d
}

// Combined holds income, expense and balance series on one date index.
type Combined struct {
	Income  *Daily
	Expense *Daily
	Balance *Daily
}

// Synthetic reports whether any component series was generated.
func (c *Combined) Synthetic() bool {
	return c.Income.Synthetic || c.Expense.Synthetic
}

// BuildCombined builds the income and expense series separately and joins
// them on the union of their dates; balance is income minus expense.
func BuildCombined(txns []*model.Transaction, opts Options) *Combined {
	opts = opts.withDefaults()

	incomeOpts, expenseOpts := opts, opts
	incomeOpts.Kind = model.KindIncome
	expenseOpts.Kind = model.KindExpense
	income := Build(txns, incomeOpts)
	expense := Build(txns, expenseOpts)

	start := income.Start
	if expense.Start.Before(start) {
		start = expense.Start
	}
	end := income.End()
	if expense.End().After(end) {
		end = expense.End()
	}
	income = income.Reindex(start, end)
	expense = expense.Reindex(start, end)

	balance := &Daily{
		Start:     start,
		Values:    make([]float64, len(income.Values)),
		Synthetic: income.Synthetic || expense.Synthetic,
	}
	for i := range balance.Values {
		balance.Values[i] = income.Values[i] - expense.Values[i]
	}
	return &Combined{Income: income, Expense: expense, Balance: balance}
}
