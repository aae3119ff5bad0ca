// Package projection derives month-level projections: goal completion dates,
// next month's income and expense, salary and debt payoff.
package projection

import (
	"math"
	"sort"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const monthLayout = "2006-01"

// Options bounds the history a projection looks at.
type Options struct {
	// WindowDays is how far back transactions are considered.
	WindowDays int `toml:"window_days"`
	// Months is how many of the most recent months are averaged.
	Months int `toml:"months"`
}

// DefaultOptions returns a 120 day window averaged over 3 months.
func DefaultOptions() Options {
	return Options{WindowDays: 120, Months: 3}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.WindowDays <= 0 {
		o.WindowDays = def.WindowDays
	}
	if o.Months <= 0 {
		o.Months = def.Months
	}
	return o
}

// MonthTotals is the income and expense booked in one calendar month.
type MonthTotals struct {
	Month   string
	Income  float64
	Expense float64
}

// Net is income minus expense.
func (m MonthTotals) Net() float64 { return m.Income - m.Expense }

// GroupByMonth sums valid transactions on or after since (zero means all)
// per calendar month, oldest first.
func GroupByMonth(txns []*model.Transaction, since time.Time) []MonthTotals {
	byMonth := make(map[string]*MonthTotals)
	for _, t := range txns {
		if !t.Valid() {
			continue
		}
		if !since.IsZero() && t.Date.Before(since) {
			continue
		}
		key := t.Date.UTC().Format(monthLayout)
		mt, ok := byMonth[key]
		if !ok {
			mt = &MonthTotals{Month: key}
			byMonth[key] = mt
		}
		switch t.Kind {
		case model.KindIncome:
			mt.Income += t.Amount
		case model.KindExpense:
			mt.Expense += t.Amount
		}
	}

	out := make([]MonthTotals, 0, len(byMonth))
	for _, mt := range byMonth {
		out = append(out, *mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func lastN(months []MonthTotals, n int) []MonthTotals {
	if len(months) > n {
		return months[len(months)-n:]
	}
	return months
}

// MonthlyNetSaving averages the positive monthly nets. Loss-making months are
// excluded entirely; with no positive month the result is 0.
func MonthlyNetSaving(months []MonthTotals) float64 {
	var positive []float64
	for _, m := range months {
		if n := m.Net(); n > 0 {
			positive = append(positive, n)
		}
	}
	if len(positive) == 0 {
		return 0
	}
	return stat.Mean(positive, nil)
}

// maxCompletionDays bounds ETAs to dates that still format as YYYY-MM-DD.
const maxCompletionDays = 4_000_000

// CompletionDate projects now + 30 days per month of saving needed, or
// model.NotAvailable when nothing is left, nothing is being saved or the
// date would fall after year 9999.
func CompletionDate(remaining, monthlyNet float64, now time.Time) string {
	if monthlyNet <= 0 || remaining <= 0 {
		return model.NotAvailable
	}
	days := 30 * remaining / monthlyNet
	if math.IsNaN(days) || days > maxCompletionDays {
		return model.NotAvailable
	}
	whole := math.Floor(days)
	eta := now.AddDate(0, 0, int(whole)).Add(time.Duration((days - whole) * float64(24*time.Hour)))
	if eta.Year() > 9999 {
		return model.NotAvailable
	}
	return model.FormatDate(eta)
}

// ProjectGoals estimates a completion date for every goal from the trailing
// monthly net saving.
func ProjectGoals(goals []*model.Goal, txns []*model.Transaction, now time.Time, opts Options) []model.GoalProjection {
	opts = opts.withDefaults()
	months := lastN(GroupByMonth(txns, now.AddDate(0, 0, -opts.WindowDays)), opts.Months)
	monthlyNet := MonthlyNetSaving(months)

	out := make([]model.GoalProjection, 0, len(goals))
	for _, g := range goals {
		remaining := math.Max(0, g.TargetAmount-g.CurrentAmount)
		out = append(out, model.GoalProjection{
			GoalID:                  g.ID,
			Title:                   g.Title,
			TargetAmount:            g.TargetAmount,
			CurrentAmount:           g.CurrentAmount,
			Remaining:               remaining,
			MonthlyNetSaving:        monthlyNet,
			MonthsOfHistoryUsed:     len(months),
			PredictedCompletionDate: CompletionDate(remaining, monthlyNet, now),
		})
	}
	return out
}

// MonthlyPrediction is the projected income and expense for next month.
type MonthlyPrediction struct {
	TargetPeriod     string  `json:"target_period"`
	PredictedIncome  float64 `json:"predicted_income"`
	PredictedExpense float64 `json:"predicted_expense"`
	PredictedBalance float64 `json:"predicted_balance"`
	Confidence       float64 `json:"confidence"`
	MonthsUsed       int     `json:"months_used"`
}

// PredictNextMonth averages the most recent months. Confidence grows with
// the number of months available.
func PredictNextMonth(txns []*model.Transaction, now time.Time, opts Options) MonthlyPrediction {
	opts = opts.withDefaults()
	months := lastN(GroupByMonth(txns, now.AddDate(0, 0, -opts.WindowDays)), opts.Months)

	p := MonthlyPrediction{
		TargetPeriod: nextMonth(now),
		MonthsUsed:   len(months),
		Confidence:   0.2,
	}
	if len(months) == 0 {
		return p
	}

	incomes := make([]float64, len(months))
	expenses := make([]float64, len(months))
	for i, m := range months {
		incomes[i], expenses[i] = m.Income, m.Expense
	}
	p.PredictedIncome = stat.Mean(incomes, nil)
	p.PredictedExpense = stat.Mean(expenses, nil)
	p.PredictedBalance = p.PredictedIncome - p.PredictedExpense
	switch len(months) {
	case 1:
		p.Confidence = 0.4
	case 2:
		p.Confidence = 0.6
	default:
		p.Confidence = 0.8
	}
	return p
}

func nextMonth(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, 0).Format(monthLayout)
}

// SalaryPrediction is next month's income from a linear trend.
type SalaryPrediction struct {
	TargetPeriod    string  `json:"target_period"`
	PredictedIncome float64 `json:"predicted_income"`
	// Confidence is the coefficient of determination of the fit.
	Confidence float64 `json:"confidence"`
	MonthsUsed int     `json:"months_used"`
}

// MinSalaryMonths is the shortest income history a salary trend is fitted on.
const MinSalaryMonths = 3

// PredictSalary regresses monthly income on the month index over the whole
// history. ok is false with fewer than MinSalaryMonths months of income.
func PredictSalary(txns []*model.Transaction, now time.Time) (SalaryPrediction, bool) {
	var x, y []float64
	for _, m := range GroupByMonth(txns, time.Time{}) {
		if m.Income == 0 {
			continue
		}
		x = append(x, float64(len(x)))
		y = append(y, m.Income)
	}
	if len(y) < MinSalaryMonths {
		return SalaryPrediction{MonthsUsed: len(y)}, false
	}

	alpha, beta := fitLine(x, y)
	r2 := stat.RSquared(x, y, nil, alpha, beta)
	if math.IsNaN(r2) {
		// constant income is fitted exactly
		r2 = 1
	}
	return SalaryPrediction{
		TargetPeriod:    nextMonth(now),
		PredictedIncome: alpha + beta*float64(len(y)),
		Confidence:      r2,
		MonthsUsed:      len(y),
	}, true
}

// fitLine is ordinary least squares, flat through a single point.
func fitLine(x, y []float64) (alpha, beta float64) {
	if len(y) == 1 {
		return y[0], 0
	}
	return stat.LinearRegression(x, y, nil, false)
}

// Debt payoff statuses.
const (
	DebtStatusNoData  = "No transactions or invalid debt amount"
	DebtStatusCleared = "Prediction successful"
	DebtStatusTooHigh = "Debt too high for current trend"
	debtHorizonMonths = 60
)

// DebtPayoff estimates when outstanding debt is cleared from the repayment
// trend.
type DebtPayoff struct {
	TotalDebt                  float64   `json:"total_debt"`
	AvgMonthlyRepayment        float64   `json:"avg_monthly_repayment"`
	PredictedMonthlyRepayments []float64 `json:"predicted_monthly_repayments,omitempty"`
	MonthsToClear              *int      `json:"months_to_clear"`
	ExpectedClearDate          *string   `json:"expected_clear_date"`
	Status                     string    `json:"status"`
}

// PredictDebtPayoff regresses monthly expense totals on the month index,
// projects five years ahead with negative months clamped to zero, and finds
// the first month the cumulative repayment covers the remaining debt.
func PredictDebtPayoff(debts []*model.Debt, txns []*model.Transaction, now time.Time) DebtPayoff {
	var total float64
	for _, d := range debts {
		total += d.RemainingAmount
	}
	out := DebtPayoff{TotalDebt: total, Status: DebtStatusNoData}

	var x, y []float64
	for _, m := range GroupByMonth(txns, time.Time{}) {
		if m.Expense == 0 {
			continue
		}
		x = append(x, float64(len(x)))
		y = append(y, m.Expense)
	}
	if len(y) == 0 || total <= 0 {
		return out
	}

	alpha, beta := fitLine(x, y)
	out.AvgMonthlyRepayment = roundCents(stat.Mean(y, nil))

	remaining := total
	months := 0
	out.PredictedMonthlyRepayments = make([]float64, 0, debtHorizonMonths)
	for i := 0; i < debtHorizonMonths; i++ {
		repayment := math.Max(0, alpha+beta*float64(len(y)+i))
		out.PredictedMonthlyRepayments = append(out.PredictedMonthlyRepayments, roundCents(repayment))
		if remaining > 0 {
			months++
			remaining -= repayment
		}
	}

	if remaining > 0 {
		out.Status = DebtStatusTooHigh
		return out
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	date := model.FormatDate(first.AddDate(0, months, 0))
	out.MonthsToClear = &months
	out.ExpectedClearDate = &date
	out.Status = DebtStatusCleared
	return out
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}
