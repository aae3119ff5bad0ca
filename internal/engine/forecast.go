package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/castlemilk/pfinance/analytics/internal/aggregate"
	"github.com/castlemilk/pfinance/analytics/internal/cache"
	"github.com/castlemilk/pfinance/analytics/internal/forecast"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/series"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
)

// Horizon aliases accepted in place of an explicit number of periods.
var horizonAliases = map[string]int{
	"week":  7,
	"month": 30,
	"year":  365,
}

// ForecastRequest selects what to forecast. Periods wins over Horizon; with
// neither set the configured default applies.
type ForecastRequest struct {
	UserID      string `json:"user_id"`
	Model       string `json:"model,omitempty"`
	Periods     int    `json:"periods,omitempty"`
	Horizon     string `json:"horizon,omitempty"`
	Granularity string `json:"granularity,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
}

// ModelUsage names the strategy that actually produced each series.
type ModelUsage struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

// ForecastPayload is the complete forecast answer.
type ForecastPayload struct {
	Model            string                 `json:"model"`
	ModelUsed        ModelUsage             `json:"model_used"`
	Granularity      aggregate.Granularity  `json:"granularity"`
	Periods          int                    `json:"periods"`
	LastObservedDate string                 `json:"last_observed_date"`
	Synthetic        bool                   `json:"synthetic"`
	Degraded         bool                   `json:"degraded"`
	Forecast         aggregate.Forecasts    `json:"forecast"`
	Summary          aggregate.Summary      `json:"summary"`
	TargetPoint      *aggregate.TargetPoint `json:"target_point,omitempty"`
	Warnings         []string               `json:"warnings,omitempty"`
}

// resolvePeriods turns Periods or Horizon into a day count.
func (e *Engine) resolvePeriods(req ForecastRequest) (int, error) {
	periods := req.Periods
	if periods == 0 {
		h := cases.Fold().String(strings.TrimSpace(req.Horizon))
		switch {
		case h == "":
			periods = e.opts.DefaultPeriods
		case horizonAliases[h] > 0:
			periods = horizonAliases[h]
		default:
			n, err := strconv.Atoi(h)
			if err != nil {
				return 0, invalidArgument("invalid horizon %q, use week, month, year or a number of days", req.Horizon)
			}
			periods = n
		}
	}
	if periods <= 0 || periods > e.opts.MaxPeriods {
		return 0, invalidArgument("periods must be between 1 and %d, got %d", e.opts.MaxPeriods, periods)
	}
	return periods, nil
}

// Forecast predicts income, expense and balance for the user. Model fitting
// problems never fail the call: they degrade to fallbacks noted in the
// payload. Unknown users and out-of-range periods are errors.
func (e *Engine) Forecast(ctx context.Context, req ForecastRequest) (*ForecastPayload, error) {
	periods, err := e.resolvePeriods(req)
	if err != nil {
		return nil, err
	}
	if err := e.requireUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	var warnings []string
	m, ok := forecast.ParseModel(req.Model)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("unknown model %q, using %s", req.Model, m))
	}
	g, err := aggregate.ParseGranularity(req.Granularity)
	if err != nil {
		warnings = append(warnings, err.Error()+"; using daily")
	}

	txns, err := e.listTransactions(ctx, req.UserID, store.TransactionFilter{})
	if err != nil {
		return nil, err
	}

	key := cache.Key(req.UserID, m.String(), strconv.Itoa(periods), string(g), req.TargetDate, fingerprint(txns))
	if cached, ok := e.cachedPayload(ctx, key); ok {
		cached.Warnings = warnings
		return cached, nil
	}

	opts := e.opts.Series
	opts.Now = e.now()
	opts.Rand = e.newRand()
	combined := series.BuildCombined(txns, opts)
	e.logSkipped(req.UserID, "forecast", combined.Income.Skipped+combined.Expense.Skipped)

	daily, usage, degraded := e.forecastDaily(ctx, combined, m, periods)
	resampled := daily.Resample(g)

	payload := &ForecastPayload{
		Model:            m.String(),
		ModelUsed:        usage,
		Granularity:      g,
		Periods:          periods,
		LastObservedDate: model.FormatDate(combined.Income.End()),
		Synthetic:        combined.Synthetic(),
		Degraded:         degraded,
		Forecast:         resampled,
		Summary:          aggregate.Summarize(resampled),
	}

	if strings.TrimSpace(req.TargetDate) != "" {
		refit := func(ctx context.Context, n int) (aggregate.Forecasts, error) {
			f, _, _ := e.forecastDaily(ctx, combined, m, n)
			return f, nil
		}
		payload.TargetPoint, err = aggregate.Extend(ctx, req.TargetDate, combined.Income.End(), periods, e.opts.MaxPeriods, daily, refit)
		if err != nil {
			return nil, &Error{Code: CodeInternal, Message: "failed to extend forecast", Cause: err}
		}
	}

	if !payload.Synthetic {
		e.storePayload(ctx, key, payload)
	}
	payload.Warnings = warnings
	return payload, nil
}

// forecastDaily runs the income and expense forecasts concurrently and
// derives the balance as their difference.
func (e *Engine) forecastDaily(ctx context.Context, c *series.Combined, m forecast.Model, periods int) (aggregate.Forecasts, ModelUsage, bool) {
	var income, expense *forecast.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		income = e.dispatcher.Forecast(gctx, c.Income, m, periods)
		return nil
	})
	g.Go(func() error {
		expense = e.dispatcher.Forecast(gctx, c.Expense, m, periods)
		return nil
	})
	_ = g.Wait()

	balance := make([]forecast.Point, len(income.Points))
	for i, p := range income.Points {
		balance[i] = forecast.Point{Date: p.Date, Value: p.Value - expense.Points[i].Value}
	}
	return aggregate.Forecasts{
			Income:  income.Points,
			Expense: expense.Points,
			Balance: balance,
		},
		ModelUsage{Income: income.Used, Expense: expense.Used},
		income.Degraded || expense.Degraded
}

func (e *Engine) cachedPayload(ctx context.Context, key string) (*ForecastPayload, bool) {
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.WithError(err).Warn("forecast cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var p ForecastPayload
	if err := json.Unmarshal(data, &p); err != nil {
		e.logger.WithError(err).Warn("discarding unreadable cached forecast")
		return nil, false
	}
	return &p, true
}

func (e *Engine) storePayload(ctx context.Context, key string, p *ForecastPayload) {
	data, err := json.Marshal(p)
	if err != nil {
		e.logger.WithError(err).Warn("failed to encode forecast for cache")
		return
	}
	if err := e.cache.Set(ctx, key, data); err != nil {
		e.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("forecast cache write failed")
	}
}

// fingerprint identifies the transaction set a forecast was computed from.
func fingerprint(txns []*model.Transaction) string {
	parts := make([]string, 0, len(txns))
	for _, t := range txns {
		parts = append(parts, fmt.Sprintf("%s|%s|%s|%g|%d", t.ID, t.Kind, t.Category, t.Amount, t.Date.Unix()))
	}
	sort.Strings(parts)
	return cache.Key(parts...)
}
