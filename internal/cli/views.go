package cli

import (
	"fmt"
	"strings"

	"github.com/castlemilk/pfinance/analytics/internal/engine"
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/projection"
)

// RenderForecast renders the per-bucket forecast, its summary and any
// provenance notes.
func RenderForecast(p *engine.ForecastPayload) string {
	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("%s forecast, %d days (%s)", p.Model, p.Periods, p.Granularity)))
	b.WriteString("\n")

	rows := make([][]string, 0, len(p.Forecast.Balance))
	for i, bal := range p.Forecast.Balance {
		rows = append(rows, []string{
			model.FormatDate(bal.Date),
			FormatMoney(valueAt(p.Forecast.Income, i)),
			FormatMoney(valueAt(p.Forecast.Expense, i)),
			FormatMoney(bal.Value),
		})
	}
	b.WriteString(RenderTable(Table{
		Headers: []string{"Date", "Income", "Expense", "Balance"},
		Rows:    rows,
	}))

	endDate := "-"
	if p.Summary.ExpectedEndDate != nil {
		endDate = *p.Summary.ExpectedEndDate
	}
	b.WriteString(RenderTable(Table{
		Title:   "Summary",
		Headers: []string{"", "Total"},
		Rows: [][]string{
			{"Income", FormatMoney(p.Summary.IncomeTotal)},
			{"Expense", FormatMoney(p.Summary.ExpenseTotal)},
			{"Balance", FormatMoney(p.Summary.BalanceTotal)},
			{"Balance on " + endDate, FormatOptionalMoney(p.Summary.ExpectedEndBalance)},
		},
	}))

	balances := make([]float64, len(p.Forecast.Balance))
	for i, pt := range p.Forecast.Balance {
		balances[i] = pt.Value
	}
	b.WriteString("  " + RenderSparkline(balances) + "\n")

	if tp := p.TargetPoint; tp != nil {
		if tp.Error != "" {
			b.WriteString(RenderNote(tp.Error, true) + "\n")
		} else {
			b.WriteString(RenderNote(fmt.Sprintf("%s: balance %s", tp.Date, FormatOptionalMoney(tp.Balance)), false) + "\n")
		}
	}
	b.WriteString(RenderNote(fmt.Sprintf("last observed %s, income via %s, expense via %s",
		p.LastObservedDate, p.ModelUsed.Income, p.ModelUsed.Expense), false) + "\n")
	if p.Synthetic {
		b.WriteString(RenderNote("no usable history: forecast is based on generated data", true) + "\n")
	}
	if p.Degraded {
		b.WriteString(RenderNote("model fit failed: fallback forecast shown", true) + "\n")
	}
	for _, w := range p.Warnings {
		b.WriteString(RenderNote(w, true) + "\n")
	}
	return b.String()
}

func valueAt(points []forecast.Point, i int) float64 {
	if i < len(points) {
		return points[i].Value
	}
	return 0
}

func RenderAnomalies(title string, anomalies []*model.Anomaly) string {
	rows := make([][]string, 0, len(anomalies))
	for _, a := range anomalies {
		rows = append(rows, []string{
			a.TransactionID,
			FormatScore(a.Score),
			a.Reason,
			model.FormatDate(a.FlaggedAt),
		})
	}
	return RenderTable(Table{
		Title:   fmt.Sprintf("%s (%s)", title, FormatCount(len(anomalies))),
		Headers: []string{"Transaction", "Score", "Reason", "Flagged"},
		Rows:    rows,
	})
}

func RenderPatterns(title string, patterns []*model.RecurringPattern) string {
	rows := make([][]string, 0, len(patterns))
	for _, p := range patterns {
		rows = append(rows, []string{
			p.PatternKey,
			string(p.Frequency),
			FormatMoney(p.AverageAmount),
			FormatCount(p.OccurrenceCount),
		})
	}
	return RenderTable(Table{
		Title:   fmt.Sprintf("%s (%s)", title, FormatCount(len(patterns))),
		Headers: []string{"Pattern", "Frequency", "Average", "Seen"},
		Rows:    rows,
	})
}

func RenderGoals(goals []model.GoalProjection) string {
	rows := make([][]string, 0, len(goals))
	for _, g := range goals {
		rows = append(rows, []string{
			g.Title,
			FormatMoney(g.Remaining),
			FormatMoney(g.MonthlyNetSaving),
			g.PredictedCompletionDate,
		})
	}
	return RenderTable(Table{
		Title:   "Goals",
		Headers: []string{"Goal", "Remaining", "Monthly saving", "ETA"},
		Rows:    rows,
	})
}

func RenderNextMonth(p projection.MonthlyPrediction) string {
	return RenderTable(Table{
		Title:   "Next month " + p.TargetPeriod,
		Headers: []string{"", "Predicted"},
		Rows: [][]string{
			{"Income", FormatMoney(p.PredictedIncome)},
			{"Expense", FormatMoney(p.PredictedExpense)},
			{"Balance", FormatMoney(p.PredictedBalance)},
			{"Confidence", FormatPercent(p.Confidence)},
		},
	})
}

func RenderSalary(p projection.SalaryPrediction) string {
	return RenderTable(Table{
		Title:   "Salary " + p.TargetPeriod,
		Headers: []string{"", ""},
		Rows: [][]string{
			{"Predicted income", FormatMoney(p.PredictedIncome)},
			{"Fit (R²)", fmt.Sprintf("%.3f", p.Confidence)},
			{"Months used", FormatCount(p.MonthsUsed)},
		},
	})
}

func RenderDebtPayoff(p projection.DebtPayoff) string {
	clearDate := "-"
	if p.ExpectedClearDate != nil {
		clearDate = *p.ExpectedClearDate
	}
	months := "-"
	if p.MonthsToClear != nil {
		months = FormatCount(*p.MonthsToClear)
	}
	return RenderTable(Table{
		Title:   "Debt payoff: " + p.Status,
		Headers: []string{"", ""},
		Rows: [][]string{
			{"Total debt", FormatMoney(p.TotalDebt)},
			{"Avg monthly repayment", FormatMoney(p.AvgMonthlyRepayment)},
			{"Months to clear", months},
			{"Expected clear date", clearDate},
		},
	})
}
