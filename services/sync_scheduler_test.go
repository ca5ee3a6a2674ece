package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/remote"
)

func TestRunOnceSyncsEveryBusiness(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	r := &fakeSyncRemote{respFn: func(_ context.Context, businessID string, _ *time.Time) (remote.SyncResponse, error) {
		mu.Lock()
		seen[businessID] = true
		mu.Unlock()
		return remote.SyncResponse{Orders: []models.Order{{ID: businessID + "-o1"}}, Timestamp: t1}, nil
	}}
	orders := NewOrderStore()
	s, err := NewSyncScheduler(NewOrderSyncEngine(r, orders, nil, nil), []string{"b1", "b2", "b3"}, "", 0)
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Len(t, seen, 3)
	for _, b := range []string{"b1", "b2", "b3"} {
		assert.Len(t, orders.Orders(b), 1)
	}
}

func TestRunOnceReportsFailure(t *testing.T) {
	r := &fakeSyncRemote{respFn: func(_ context.Context, businessID string, _ *time.Time) (remote.SyncResponse, error) {
		if businessID == "bad" {
			return remote.SyncResponse{}, &remote.APIError{StatusCode: 500, Message: "boom"}
		}
		return remote.SyncResponse{Timestamp: t1}, nil
	}}
	cps := NewMemoryCheckpointStore()
	s, err := NewSyncScheduler(NewOrderSyncEngine(r, NewOrderStore(), cps, nil), []string{"good", "bad"}, "", 0)
	require.NoError(t, err)

	assert.Error(t, s.RunOnce(context.Background()))
	_, ok, _ := cps.Get(context.Background(), "good")
	assert.True(t, ok, "one failing business does not stop the others")
}

func TestSchedulerTicks(t *testing.T) {
	r := &fakeSyncRemote{respFn: func(context.Context, string, *time.Time) (remote.SyncResponse, error) {
		return remote.SyncResponse{Timestamp: t1}, nil
	}}
	s, err := NewSyncScheduler(NewOrderSyncEngine(r, NewOrderStore(), nil, nil), []string{"b1"}, "@every 1s", time.Second)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return r.callCount() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestSchedulerInvalidSpec(t *testing.T) {
	_, err := NewSyncScheduler(NewOrderSyncEngine(nil, NewOrderStore(), nil, nil), nil, "not a cron", 0)
	assert.Error(t, err)
}
