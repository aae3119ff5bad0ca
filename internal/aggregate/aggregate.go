// Package aggregate resamples daily forecasts into calendar buckets and
// answers point queries beyond the requested horizon.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Granularity is the bucket width applied to a forecast.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity accepts daily, weekly or monthly in any case. An empty
// string means daily.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(cases.Fold().String(strings.TrimSpace(s))); g {
	case "":
		return Daily, nil
	case Daily, Weekly, Monthly:
		return g, nil
	default:
		return Daily, fmt.Errorf("invalid granularity %q, use daily, weekly or monthly", s)
	}
}

// bucketEnd returns the label of the bucket containing day: the Sunday that
// ends its week, or the last day of its month.
func bucketEnd(day time.Time, g Granularity) time.Time {
	switch g {
	case Weekly:
		return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
	case Monthly:
		return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Resample sums points into buckets. Daily input is returned unchanged.
func Resample(points []forecast.Point, g Granularity) []forecast.Point {
	if g == Daily || len(points) == 0 {
		return points
	}

	sums := make(map[time.Time]float64)
	for _, p := range points {
		sums[bucketEnd(model.Day(p.Date), g)] += p.Value
	}
	out := make([]forecast.Point, 0, len(sums))
	for label, v := range sums {
		out = append(out, forecast.Point{Date: label, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Forecasts is the income, expense and balance forecast over one horizon.
type Forecasts struct {
	Income  []forecast.Point `json:"income"`
	Expense []forecast.Point `json:"expense"`
	Balance []forecast.Point `json:"balance"`
}

// Resample applies g to all three series.
func (f Forecasts) Resample(g Granularity) Forecasts {
	return Forecasts{
		Income:  Resample(f.Income, g),
		Expense: Resample(f.Expense, g),
		Balance: Resample(f.Balance, g),
	}
}

// Summary holds horizon totals and the final balance bucket.
type Summary struct {
	IncomeTotal        float64  `json:"income_total"`
	ExpenseTotal       float64  `json:"expense_total"`
	BalanceTotal       float64  `json:"balance_total"`
	ExpectedEndDate    *string  `json:"expected_end_date"`
	ExpectedEndBalance *float64 `json:"expected_end_date_balance"`
}

// Summarize totals already-resampled forecasts.
func Summarize(f Forecasts) Summary {
	s := Summary{
		IncomeTotal:  total(f.Income),
		ExpenseTotal: total(f.Expense),
		BalanceTotal: total(f.Balance),
	}
	if n := len(f.Balance); n > 0 {
		last := f.Balance[n-1]
		date := model.FormatDate(last.Date)
		balance := RoundCents(last.Value)
		s.ExpectedEndDate = &date
		s.ExpectedEndBalance = &balance
	}
	return s
}

func total(points []forecast.Point) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum
}

// RoundCents rounds half to even at two decimal places.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}

// ErrTargetDateFormat is reported in TargetPoint.Error for unparsable dates.
const ErrTargetDateFormat = "Invalid target_date format. Use YYYY-MM-DD."

// ErrTargetDateRange is reported for targets beyond the forecast limit. It
// takes the limit in days.
const ErrTargetDateRange = "target_date is more than %d days after the last observed date"

// TargetPoint is the daily forecast at one requested date. Values are nil
// when the date falls outside the forecast (on or before the last observation).
type TargetPoint struct {
	Date    string   `json:"date,omitempty"`
	Income  *float64 `json:"income,omitempty"`
	Expense *float64 `json:"expense,omitempty"`
	Balance *float64 `json:"balance,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// RefitFunc recomputes daily forecasts for a longer horizon.
type RefitFunc func(ctx context.Context, periods int) (Forecasts, error)

// Extend locates target in the daily forecasts, re-running the forecast with
// periods = target - lastObserved when the target lies beyond the horizon.
// A malformed target, or one more than maxPeriods days out, is reported in
// the returned point, not as an error. maxPeriods <= 0 disables the limit.
func Extend(ctx context.Context, target string, lastObserved time.Time, periods, maxPeriods int, daily Forecasts, refit RefitFunc) (*TargetPoint, error) {
	td, err := model.ParseDate(strings.TrimSpace(target))
	if err != nil {
		return &TargetPoint{Error: ErrTargetDateFormat}, nil
	}

	daysNeeded := DaysBetween(model.Day(lastObserved), td)
	if maxPeriods > 0 && daysNeeded > int64(maxPeriods) {
		return &TargetPoint{
			Date:  model.FormatDate(td),
			Error: fmt.Sprintf(ErrTargetDateRange, maxPeriods),
		}, nil
	}
	if daysNeeded > int64(periods) {
		daily, err = refit(ctx, int(daysNeeded))
		if err != nil {
			return nil, fmt.Errorf("failed to extend forecast to %s: %w", target, err)
		}
	}

	return &TargetPoint{
		Date:    model.FormatDate(td),
		Income:  find(daily.Income, td),
		Expense: find(daily.Expense, td),
		Balance: find(daily.Balance, td),
	}, nil
}

// DaysBetween counts calendar days from a to b, both taken as UTC dates. It
// does not saturate for distant dates the way time.Time.Sub does.
func DaysBetween(a, b time.Time) int64 {
	return (model.Day(b).Unix() - model.Day(a).Unix()) / 86400
}

func find(points []forecast.Point, day time.Time) *float64 {
	for _, p := range points {
		if model.Day(p.Date).Equal(day) {
			v := p.Value
			return &v
		}
	}
	return nil
}
