package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/series"
	"github.com/sirupsen/logrus"
)

const (
	// UsedDampedMean marks the no-fit forecast for very short series.
	UsedDampedMean = "damped-mean"
	// UsedLastValue marks the emergency fallback.
	UsedLastValue = "last-value"
)

// Point is one forecast day.
type Point struct {
	Date  time.Time
	Value float64
}

type pointJSON struct {
	Date  string  `json:"date"`
	Value float64 `json:"predicted_value"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{Date: model.FormatDate(p.Date), Value: p.Value})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	date, err := model.ParseDate(raw.Date)
	if err != nil {
		return fmt.Errorf("invalid forecast date %q: %w", raw.Date, err)
	}
	p.Date, p.Value = date, raw.Value
	return nil
}

// Result is a forecast of exactly the requested number of days, starting the
// day after the last observation.
type Result struct {
	Points    []Point
	Requested Model
	// Used names the strategy that produced Points, which differs from
	// Requested after a fallback.
	Used     string
	Degraded bool
	// FitError describes why the emergency fallback was used.
	FitError string
}

// Values returns the predicted values in date order.
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Value
	}
	return out
}

// Config tunes the dispatcher.
type Config struct {
	// MinObservations is the shortest series that is fitted at all.
	MinObservations int
	// GBRTMinRows is the fewest complete feature rows GBRT trains on before
	// falling back to Holt.
	GBRTMinRows int
	// FitTimeout bounds a single model fit.
	FitTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinObservations: 10,
		GBRTMinRows:     30,
		FitTimeout:      20 * time.Second,
	}
}

// Dispatcher selects a strategy and guarantees a result.
type Dispatcher struct {
	cfg    Config
	logger *logrus.Entry
	// strategy constructs the per-call strategy; replaced in tests.
	strategy func(Model) Strategy
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config, logger *logrus.Entry) *Dispatcher {
	def := DefaultConfig()
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = def.MinObservations
	}
	if cfg.GBRTMinRows <= 0 {
		cfg.GBRTMinRows = def.GBRTMinRows
	}
	if cfg.FitTimeout <= 0 {
		cfg.FitTimeout = def.FitTimeout
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{
		cfg:      cfg,
		logger:   logger.WithField("component", "forecast"),
		strategy: NewStrategy,
	}
}

// Forecast predicts periods days after the end of s. It never fails: short
// series get a damped constant and any fitting failure repeats the last
// observed value.
func (d *Dispatcher) Forecast(ctx context.Context, s *series.Daily, m Model, periods int) *Result {
	res := &Result{Requested: m}
	if periods <= 0 || s.Len() == 0 {
		res.Used = m.String()
		return res
	}

	if s.Len() < d.cfg.MinObservations {
		res.Used = UsedDampedMean
		res.Points = constantPoints(s, periods, (s.Last()+s.Sum()/float64(s.Len()))/2)
		return res
	}

	if m == GBRT && featureRows(s) < d.cfg.GBRTMinRows {
		d.logger.WithFields(logrus.Fields{
			"rows":     featureRows(s),
			"required": d.cfg.GBRTMinRows,
		}).Debug("gbrt history too short, using holt")
		m = Holt
	}

	strat := d.strategy(m)
	values, err := d.fit(ctx, strat, s, periods)
	if err != nil {
		d.logger.WithFields(logrus.Fields{
			"model":   strat.Name(),
			"periods": periods,
			"length":  s.Len(),
		}).WithError(err).Warn("model fit failed, repeating last value")
		res.Used = UsedLastValue
		res.Degraded = true
		res.FitError = err.Error()
		res.Points = constantPoints(s, periods, s.Last())
		return res
	}

	res.Used = strat.Name()
	res.Points = make([]Point, periods)
	end := s.End()
	for i, v := range values {
		res.Points[i] = Point{Date: end.AddDate(0, 0, i+1), Value: v}
	}
	return res
}

type fitOutcome struct {
	values []float64
	err    error
}

// fit runs the strategy on its own goroutine so a panic or an overrun is
// contained and the caller can fall back.
func (d *Dispatcher) fit(ctx context.Context, strat Strategy, s *series.Daily, periods int) ([]float64, error) {
	if isConstant(s.Values) {
		return nil, ErrDegenerateSeries
	}

	fitCtx, cancel := context.WithTimeout(ctx, d.cfg.FitTimeout)
	defer cancel()

	done := make(chan fitOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fitOutcome{err: fmt.Errorf("%s panicked: %v", strat.Name(), r)}
			}
		}()
		values, err := strat.Forecast(fitCtx, s, periods)
		done <- fitOutcome{values: values, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if len(out.values) != periods {
			return nil, fmt.Errorf("%s returned %d values, want %d", strat.Name(), len(out.values), periods)
		}
		if !allFinite(out.values) {
			return nil, ErrNonFinite
		}
		return out.values, nil
	case <-fitCtx.Done():
		return nil, fmt.Errorf("%s fit aborted: %w", strat.Name(), fitCtx.Err())
	}
}

func constantPoints(s *series.Daily, periods int, v float64) []Point {
	end := s.End()
	out := make([]Point, periods)
	for i := range out {
		out[i] = Point{Date: end.AddDate(0, 0, i+1), Value: v}
	}
	return out
}
