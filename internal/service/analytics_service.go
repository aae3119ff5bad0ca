// Package service exposes the analytics engine as a Connect RPC service.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/castlemilk/pfinance/analytics/internal/engine"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/projection"
)

// AnalyticsServiceName is the fully-qualified name of the service.
const AnalyticsServiceName = "pfinance.analytics.v1.AnalyticsService"

// Procedure paths.
const (
	ForecastProcedure              = "/" + AnalyticsServiceName + "/Forecast"
	DetectAnomaliesProcedure       = "/" + AnalyticsServiceName + "/DetectAnomalies"
	ListAnomaliesProcedure         = "/" + AnalyticsServiceName + "/ListAnomalies"
	MineRecurringPatternsProcedure = "/" + AnalyticsServiceName + "/MineRecurringPatterns"
	ListRecurringPatternsProcedure = "/" + AnalyticsServiceName + "/ListRecurringPatterns"
	ProjectGoalsProcedure          = "/" + AnalyticsServiceName + "/ProjectGoals"
	PredictNextMonthProcedure      = "/" + AnalyticsServiceName + "/PredictNextMonth"
	PredictSalaryProcedure         = "/" + AnalyticsServiceName + "/PredictSalary"
	PredictDebtPayoffProcedure     = "/" + AnalyticsServiceName + "/PredictDebtPayoff"
)

// Analytics is the engine surface the service calls into.
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

// UserRequest addresses a per-user operation.
type UserRequest struct {
	UserID string `json:"user_id"`
}

// AnomaliesResponse lists anomalies for one user.
type AnomaliesResponse struct {
	Anomalies []*model.Anomaly `json:"anomalies"`
}

type RecurringPatternsResponse struct {
	Patterns []*model.RecurringPattern `json:"patterns"`
}

type GoalProjectionsResponse struct {
	Goals []model.GoalProjection `json:"goals"`
}

// AnalyticsService implements the Connect handlers.
type AnalyticsService struct {
	analytics Analytics
}

// NewAnalyticsService creates the service over an engine.
func NewAnalyticsService(analytics Analytics) *AnalyticsService {
	return &AnalyticsService{analytics: analytics}
}

func (s *AnalyticsService) Forecast(ctx context.Context, req *connect.Request[engine.ForecastRequest]) (*connect.Response[engine.ForecastPayload], error) {
	payload, err := s.analytics.Forecast(ctx, *req.Msg)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(payload), nil
}

func (s *AnalyticsService) DetectAnomalies(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[AnomaliesResponse], error) {
	anomalies, err := s.analytics.DetectAnomalies(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AnomaliesResponse{Anomalies: anomalies}), nil
}

func (s *AnalyticsService) ListAnomalies(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[AnomaliesResponse], error) {
	anomalies, err := s.analytics.ListAnomalies(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AnomaliesResponse{Anomalies: anomalies}), nil
}

func (s *AnalyticsService) MineRecurringPatterns(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[RecurringPatternsResponse], error) {
	patterns, err := s.analytics.MineRecurringPatterns(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RecurringPatternsResponse{Patterns: patterns}), nil
}

func (s *AnalyticsService) ListRecurringPatterns(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[RecurringPatternsResponse], error) {
	patterns, err := s.analytics.ListRecurringPatterns(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RecurringPatternsResponse{Patterns: patterns}), nil
}

func (s *AnalyticsService) ProjectGoals(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[GoalProjectionsResponse], error) {
	goals, err := s.analytics.ProjectGoals(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GoalProjectionsResponse{Goals: goals}), nil
}

func (s *AnalyticsService) PredictNextMonth(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[projection.MonthlyPrediction], error) {
	p, err := s.analytics.PredictNextMonth(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&p), nil
}

func (s *AnalyticsService) PredictSalary(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[projection.SalaryPrediction], error) {
	p, err := s.analytics.PredictSalary(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&p), nil
}

func (s *AnalyticsService) PredictDebtPayoff(ctx context.Context, req *connect.Request[UserRequest]) (*connect.Response[projection.DebtPayoff], error) {
	p, err := s.analytics.PredictDebtPayoff(ctx, req.Msg.UserID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&p), nil
}

// NewAnalyticsServiceHandler builds an HTTP handler for every procedure and
// returns the path to mount it on.
func NewAnalyticsServiceHandler(svc *AnalyticsService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSONCodec()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ForecastProcedure, connect.NewUnaryHandler(ForecastProcedure, svc.Forecast, opts...))
	mux.Handle(DetectAnomaliesProcedure, connect.NewUnaryHandler(DetectAnomaliesProcedure, svc.DetectAnomalies, opts...))
	mux.Handle(ListAnomaliesProcedure, connect.NewUnaryHandler(ListAnomaliesProcedure, svc.ListAnomalies, opts...))
	mux.Handle(MineRecurringPatternsProcedure, connect.NewUnaryHandler(MineRecurringPatternsProcedure, svc.MineRecurringPatterns, opts...))
	mux.Handle(ListRecurringPatternsProcedure, connect.NewUnaryHandler(ListRecurringPatternsProcedure, svc.ListRecurringPatterns, opts...))
	mux.Handle(ProjectGoalsProcedure, connect.NewUnaryHandler(ProjectGoalsProcedure, svc.ProjectGoals, opts...))
	mux.Handle(PredictNextMonthProcedure, connect.NewUnaryHandler(PredictNextMonthProcedure, svc.PredictNextMonth, opts...))
	mux.Handle(PredictSalaryProcedure, connect.NewUnaryHandler(PredictSalaryProcedure, svc.PredictSalary, opts...))
	mux.Handle(PredictDebtPayoffProcedure, connect.NewUnaryHandler(PredictDebtPayoffProcedure, svc.PredictDebtPayoff, opts...))
	return "/" + AnalyticsServiceName + "/", mux
}

// toConnectError maps engine error codes onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		return connect.NewError(connect.CodeInternal, fmt.Errorf("internal error"))
	}
	switch engErr.Code {
	case engine.CodeNotFound:
		return connect.NewError(connect.CodeNotFound, errors.New(engErr.Message))
	case engine.CodeInvalidArgument:
		return connect.NewError(connect.CodeInvalidArgument, errors.New(engErr.Message))
	default:
		return connect.NewError(connect.CodeInternal, errors.New(engErr.Message))
	}
}
