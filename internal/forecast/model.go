// Package forecast produces daily forecasts from a series.Daily using one of
// several strategies, always returning a result even when fitting fails.
package forecast

import (
	"context"
	"errors"
	"strings"

	"github.com/castlemilk/pfinance/analytics/internal/series"
	"golang.org/x/text/cases"
)

// Model selects a forecasting strategy.
type Model int

const (
	// Holt is the default: additive trend and weekly seasonality smoothing.
	Holt Model = iota
	ARIMA
	SARIMA
	Prophet
	GBRT
)

var modelNames = map[Model]string{
	Holt:    "holt",
	ARIMA:   "arima",
	SARIMA:  "sarima",
	Prophet: "prophet",
	GBRT:    "gbrt",
}

var modelAliases = map[string]Model{
	"holt":         Holt,
	"holt_winters": Holt,
	"holtwinters":  Holt,
	"expsmooth":    Holt,
	"hw":           Holt,
	"arima":        ARIMA,
	"sarima":       SARIMA,
	"prophet":      Prophet,
	"gbrt":         GBRT,
	"xgb":          GBRT,
	"xgboost":      GBRT,
	"tree":         GBRT,
}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return modelNames[Holt]
}

// ParseModel maps a case-insensitive identifier or alias to a Model.
// Unknown identifiers select Holt; ok is false in that case.
func ParseModel(s string) (m Model, ok bool) {
	key := cases.Fold().String(strings.TrimSpace(s))
	if key == "" {
		return Holt, true
	}
	m, ok = modelAliases[key]
	if !ok {
		return Holt, false
	}
	return m, true
}

var (
	ErrInsufficientHistory = errors.New("insufficient history for model")
	ErrDegenerateSeries    = errors.New("degenerate constant series")
	ErrNonFinite           = errors.New("model produced non-finite values")
)

// Strategy fits a model to a series and predicts the next periods days.
// Implementations hold no state across calls.
type Strategy interface {
	Name() string
	Forecast(ctx context.Context, s *series.Daily, periods int) ([]float64, error)
}

// NewStrategy constructs a fresh strategy for m.
func NewStrategy(m Model) Strategy {
	switch m {
	case ARIMA:
		return &arimaStrategy{maxOrder: 5}
	case SARIMA:
		return &sarimaStrategy{period: weeklyPeriod}
	case Prophet:
		return &prophetStrategy{fourierOrder: 3, maxChangepoints: 25, changepointRange: 0.8, changepointPenalty: 5}
	case GBRT:
		return &gbrtStrategy{trees: 100, depth: 3, learningRate: 0.1}
	default:
		return &holtWintersStrategy{period: weeklyPeriod}
	}
}

const weeklyPeriod = 7
