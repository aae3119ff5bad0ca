// Package httpapi serves the analytics operations as plain JSON routes under
// /api/ml for clients that do not speak Connect.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/castlemilk/pfinance/analytics/internal/engine"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/projection"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Analytics is the engine surface the routes call into.
type Analytics interface {
	Forecast(ctx context.Context, req engine.ForecastRequest) (*engine.ForecastPayload, error)
	DetectAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error)
	ListAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error)
	MineRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error)
	ListRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error)
	ProjectGoals(ctx context.Context, userID string) ([]model.GoalProjection, error)
	PredictNextMonth(ctx context.Context, userID string) (projection.MonthlyPrediction, error)
	PredictSalary(ctx context.Context, userID string) (projection.SalaryPrediction, error)
	PredictDebtPayoff(ctx context.Context, userID string) (projection.DebtPayoff, error)
}

// Handler serves the JSON routes for one Analytics implementation.
type Handler struct {
	analytics Analytics
	logger    *logrus.Entry
}

// NewHandler creates the route handlers. A nil logger discards output.
func NewHandler(analytics Analytics, logger *logrus.Logger) *Handler {
	return &Handler{analytics: analytics, logger: logging.Component(logger, "httpapi")}
}

// RegisterRoutes mounts the routes on router.
func RegisterRoutes(router *mux.Router, h *Handler) {
	api := router.PathPrefix("/api/ml").Subrouter()
	api.HandleFunc("/forecast/", h.Forecast).Methods(http.MethodGet)
	api.HandleFunc("/anomalies/run/{user_id}/", h.RunAnomalies).Methods(http.MethodPost)
	api.HandleFunc("/anomalies/users/{user_id}/", h.ListAnomalies).Methods(http.MethodGet)
	api.HandleFunc("/recurring/run/{user_id}/", h.RunRecurring).Methods(http.MethodPost)
	api.HandleFunc("/recurring/users/{user_id}/", h.ListRecurring).Methods(http.MethodGet)
	api.HandleFunc("/goals/eta/{user_id}/", h.GoalETA).Methods(http.MethodGet)
	api.HandleFunc("/predict-expense/{user_id}/", h.PredictNextMonth).Methods(http.MethodGet)
	api.HandleFunc("/salary/{user_id}/", h.PredictSalary).Methods(http.MethodGet)
	api.HandleFunc("/debts/{user_id}/", h.PredictDebtPayoff).Methods(http.MethodGet)
}

// NewRouter returns a router with the analytics routes and a strict trailing
// slash policy.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.Use(contentTypeMiddleware)
	RegisterRoutes(r, h)
	return r
}

func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type runAnomaliesResponse struct {
	Created    int      `json:"created"`
	AnomalyIDs []string `json:"anomaly_ids"`
}

type runRecurringResponse struct {
	Created    int      `json:"created"`
	PatternIDs []string `json:"pattern_ids"`
}

type goalsResponse struct {
	Results []model.GoalProjection `json:"results"`
}

// Forecast reads its parameters from the query string:
// user_id, model, periods, horizon, granularity and target_date.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := engine.ForecastRequest{
		UserID:      q.Get("user_id"),
		Model:       q.Get("model"),
		Horizon:     q.Get("horizon"),
		Granularity: q.Get("granularity"),
		TargetDate:  q.Get("target_date"),
	}
	if req.UserID == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}
	if raw := strings.TrimSpace(q.Get("periods")); raw != "" {
		periods, err := strconv.Atoi(raw)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "periods must be integer days"})
			return
		}
		if periods <= 0 {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "periods must be positive"})
			return
		}
		req.Periods = periods
	}

	payload, err := h.analytics.Forecast(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// RunAnomalies detects new anomalies for the user in the path.
func (h *Handler) RunAnomalies(w http.ResponseWriter, r *http.Request) {
	created, err := h.analytics.DetectAnomalies(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := runAnomaliesResponse{Created: len(created), AnomalyIDs: make([]string, 0, len(created))}
	for _, a := range created {
		resp.AnomalyIDs = append(resp.AnomalyIDs, a.ID)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListAnomalies returns every stored anomaly for the user.
func (h *Handler) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	anomalies, err := h.analytics.ListAnomalies(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if anomalies == nil {
		anomalies = []*model.Anomaly{}
	}
	h.writeJSON(w, http.StatusOK, anomalies)
}

// RunRecurring mines recurring patterns and reports the newly created ones.
func (h *Handler) RunRecurring(w http.ResponseWriter, r *http.Request) {
	created, err := h.analytics.MineRecurringPatterns(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := runRecurringResponse{Created: len(created), PatternIDs: make([]string, 0, len(created))}
	for _, p := range created {
		resp.PatternIDs = append(resp.PatternIDs, p.ID)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListRecurring returns every stored recurring pattern for the user.
func (h *Handler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.analytics.ListRecurringPatterns(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if patterns == nil {
		patterns = []*model.RecurringPattern{}
	}
	h.writeJSON(w, http.StatusOK, patterns)
}

// GoalETA projects completion dates for the user's goals.
func (h *Handler) GoalETA(w http.ResponseWriter, r *http.Request) {
	goals, err := h.analytics.ProjectGoals(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, goalsResponse{Results: goals})
}

// PredictNextMonth serves the next-month income and expense projection.
func (h *Handler) PredictNextMonth(w http.ResponseWriter, r *http.Request) {
	p, err := h.analytics.PredictNextMonth(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// PredictSalary serves the salary regression.
func (h *Handler) PredictSalary(w http.ResponseWriter, r *http.Request) {
	p, err := h.analytics.PredictSalary(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// PredictDebtPayoff serves the debt clearance estimate.
func (h *Handler) PredictDebtPayoff(w http.ResponseWriter, r *http.Request) {
	p, err := h.analytics.PredictDebtPayoff(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// statusFor maps engine error codes onto HTTP statuses.
func statusFor(err error) int {
	switch engine.CodeOf(err) {
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := "internal error"
	var engErr *engine.Error
	if status != http.StatusInternalServerError && errors.As(err, &engErr) {
		msg = engErr.Message
	}
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("analytics request failed")
	}
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Warn("failed to write response")
	}
}
