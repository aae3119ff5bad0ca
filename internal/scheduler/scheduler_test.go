package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/castlemilk/pfinance/analytics/internal/engine"
	"github.com/castlemilk/pfinance/analytics/internal/model"
	"github.com/castlemilk/pfinance/analytics/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// failingDetector fails for one user and delegates the rest.
type failingDetector struct {
	Detector
	failFor string
}

func (d failingDetector) DetectAnomalies(ctx context.Context, userID string) ([]*model.Anomaly, error) {
	if userID == d.failFor {
		return nil, errors.New("store timeout")
	}
	return d.Detector.DetectAnomalies(ctx, userID)
}

func seed(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	today := model.Day(time.Now())
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, st.CreateUser(ctx, &model.User{ID: id}))
		for i, amount := range []float64{30, 32, 28, 400} {
			require.NoError(t, st.CreateTransaction(ctx, &model.Transaction{
				UserID: id, Kind: model.KindExpense, Amount: amount,
				Category: "Dining", Date: today.AddDate(0, 0, -i),
			}))
		}
	}
	return st
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	st := seed(t)
	eng := engine.New(st, engine.DefaultOptions(), nil)

	s, err := New(eng, st, "0 3 * * *", nil)
	require.NoError(t, err)

	report, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 2, report.Anomalies)
	assert.Equal(t, 0, report.Failures)

	report, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Anomalies, "second run creates nothing new")
}

func TestRunOnceContinuesAfterUserFailure(t *testing.T) {
	st := seed(t)
	eng := engine.New(st, engine.DefaultOptions(), nil)

	s, err := New(failingDetector{Detector: eng, failFor: "alice"}, st, "@daily", nil)
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 1, report.Anomalies)
}

func TestRunOnceListUsersError(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store.NewMockStore(ctrl)
	st.EXPECT().ListUserIDs(gomock.Any()).Return(nil, errors.New("permission denied"))

	s, err := New(engine.New(st, engine.DefaultOptions(), nil), st, "@hourly", nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "failed to list users")
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(nil, nil, "every night", nil)
	assert.Error(t, err)
}

func TestTickSkipsWhileBatchRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store.NewMockStore(ctrl)
	// no ListUserIDs expectation: a skipped tick must not touch the store

	s, err := New(engine.New(st, engine.DefaultOptions(), nil), st, "@daily", nil)
	require.NoError(t, err)

	require.True(t, s.locks.TryLock(batchKey))
	s.tick()
	s.locks.Unlock(batchKey)
}

func TestStartStop(t *testing.T) {
	st := store.NewMemoryStore()
	s, err := New(engine.New(st, engine.DefaultOptions(), nil), st, "@daily", nil)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
