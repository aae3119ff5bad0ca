// Package scheduler runs anomaly detection and recurring pattern mining for
// every user on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/locker"
	"github.com/castlemilk/pfinance/analytics/internal/logging"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Detector is the engine surface a batch run needs.
type Detector interface {
	DetectAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error)
	MineRecurringPatterns(ctx context.Context, userID string) ([]*model.RecurringPattern, error)
}

// UserLister enumerates the users to process.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Report summarises one batch run.
type Report struct {
	Users     int
	Anomalies int
	Patterns  int
	Failures  int
	Duration  time.Duration
}

const batchKey = "batch"

// Scheduler runs a batch on a cron schedule, one batch at a time.
type Scheduler struct {
	detector Detector
	users    UserLister
	cron     *cron.Cron
	logger   *logrus.Entry
	locks    *locker.Locker
}

// New creates a scheduler that runs on spec, a standard five-field cron
// expression. A nil logger discards output.
func New(detector Detector, users UserLister, spec string, logger *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		detector: detector,
		users:    users,
		cron:     cron.New(),
		logger:   logging.Component(logger, "scheduler"),
		locks:    locker.New(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running on schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("entries", len(s.cron.Entries())).Info("scheduler started")
}

// Stop halts the schedule and waits for a running batch to finish or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	if !s.locks.TryLock(batchKey) {
		s.logger.Warn("previous batch still running, skipping")
		return
	}
	defer s.locks.Unlock(batchKey)

	if _, err := s.RunOnce(context.Background()); err != nil {
		s.logger.WithError(err).Error("batch run failed")
	}
}

// RunOnce processes every user once. A failure for one user is logged and
// counted; the run continues with the next user.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	start := time.Now()
	var report Report

	userIDs, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list users: %w", err)
	}
	report.Users = len(userIDs)

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entry := s.logger.WithField("user_id", userID)

		anomalies, err := s.detector.DetectAnomalies(ctx, userID)
		if err != nil {
			report.Failures++
			entry.WithError(err).Warn("anomaly detection failed")
		} else {
			report.Anomalies += len(anomalies)
		}

		patterns, err := s.detector.MineRecurringPatterns(ctx, userID)
		if err != nil {
			report.Failures++
			entry.WithError(err).Warn("recurring pattern mining failed")
		} else {
			report.Patterns += len(patterns)
		}
	}

	report.Duration = time.Since(start)
	s.logger.WithFields(logrus.Fields{
		"users":     report.Users,
		"anomalies": report.Anomalies,
		"patterns":  report.Patterns,
		"failures":  report.Failures,
		"duration":  report.Duration.String(),
	}).Info("batch run finished")
	return report, nil
}
