package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/remote"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

var t1 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestFirstSyncMergesAndStoresCheckpoint(t *testing.T) {
	utils.InitLogger()
	orders := NewOrderStore()
	r := &fakeSyncRemote{respFn: func(_ context.Context, _ string, since *time.Time) (remote.SyncResponse, error) {
		return remote.SyncResponse{
			Orders:    []models.Order{{ID: "o1", Status: models.OrderStatusPending}},
			Timestamp: t1,
		}, nil
	}}
	e := NewOrderSyncEngine(r, orders, nil, nil)

	res, err := e.SyncOrders(context.Background(), "b1")
	require.NoError(t, err)
	assert.Nil(t, r.calls[0], "first sync has no lastSyncTime")
	assert.Equal(t, 1, res.Changed)
	assert.True(t, res.Advanced)

	list := orders.Orders("b1")
	require.Len(t, list, 1)
	assert.Equal(t, models.OrderStatusPending, list[0].Status)

	last, ok, err := e.LastSyncTime(context.Background(), "b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, t1.Equal(last))
	assert.Equal(t, SyncIdle, e.State("b1"))
}

func TestSyncSendsCheckpointAndNeverRegresses(t *testing.T) {
	stamps := []time.Time{t1, t1.Add(time.Minute), t1.Add(-time.Hour), t1.Add(2 * time.Minute)}
	call := 0
	r := &fakeSyncRemote{respFn: func(context.Context, string, *time.Time) (remote.SyncResponse, error) {
		ts := stamps[call]
		call++
		return remote.SyncResponse{Orders: []models.Order{{ID: "o1", Status: ts.String()}}, Timestamp: ts}, nil
	}}
	e := NewOrderSyncEngine(r, NewOrderStore(), nil, nil)

	var prev time.Time
	for i := range stamps {
		_, err := e.SyncOrders(context.Background(), "b1")
		require.NoError(t, err)
		last, _, _ := e.LastSyncTime(context.Background(), "b1")
		assert.False(t, last.Before(prev), "sync %d regressed", i)
		prev = last
	}
	assert.True(t, t1.Add(2*time.Minute).Equal(prev))
	require.Len(t, r.calls, 4)
	assert.True(t, t1.Add(time.Minute).Equal(*r.calls[3]), "older timestamp was not stored")
}

func TestEmptyUnchangedSyncWritesNothing(t *testing.T) {
	cps := newCountingCheckpoints()
	require.NoError(t, cps.MemoryCheckpointStore.Save(context.Background(), "b1", t1))
	orders := NewOrderStore()
	r := &fakeSyncRemote{respFn: func(context.Context, string, *time.Time) (remote.SyncResponse, error) {
		return remote.SyncResponse{Timestamp: t1}, nil
	}}
	e := NewOrderSyncEngine(r, orders, cps, nil)

	res, err := e.SyncOrders(context.Background(), "b1")
	require.NoError(t, err)
	assert.False(t, res.Advanced)
	assert.Equal(t, 0, cps.saveCount())
	assert.Equal(t, uint64(0), orders.Revision("b1"))
}

func TestSyncFailureKeepsCheckpoint(t *testing.T) {
	cps := newCountingCheckpoints()
	require.NoError(t, cps.MemoryCheckpointStore.Save(context.Background(), "b1", t1))
	notes := NewNotificationLog(5)
	orders := NewOrderStore()
	r := &fakeSyncRemote{respFn: func(context.Context, string, *time.Time) (remote.SyncResponse, error) {
		return remote.SyncResponse{}, &remote.APIError{StatusCode: 503, Message: "maintenance"}
	}}
	e := NewOrderSyncEngine(r, orders, cps, notes)

	_, err := e.SyncOrders(context.Background(), "b1")
	var apiErr *remote.APIError
	assert.True(t, errors.As(err, &apiErr))

	last, _, _ := e.LastSyncTime(context.Background(), "b1")
	assert.True(t, t1.Equal(last))
	assert.Equal(t, 0, cps.saveCount())
	assert.Empty(t, orders.Orders("b1"))

	recent := notes.Recent("b1", nil)
	require.Len(t, recent, 1)
	assert.Equal(t, "maintenance", recent[0].Message)

	// percobaan berikutnya meminta window yang sama
	_, _ = e.SyncOrders(context.Background(), "b1")
	require.Len(t, r.calls, 2)
	assert.True(t, t1.Equal(*r.calls[1]))
}

func TestConcurrentSyncIsSkipped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := &fakeSyncRemote{respFn: func(context.Context, string, *time.Time) (remote.SyncResponse, error) {
		close(entered)
		<-release
		return remote.SyncResponse{Timestamp: t1}, nil
	}}
	e := NewOrderSyncEngine(r, NewOrderStore(), nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := e.SyncOrders(context.Background(), "b1")
		assert.NoError(t, err)
	}()
	<-entered
	assert.Equal(t, SyncSyncing, e.State("b1"))

	res, err := e.SyncOrders(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	close(release)
	wg.Wait()
	assert.Equal(t, 1, r.callCount())
	assert.Equal(t, SyncIdle, e.State("b1"))
}

func TestGormCheckpointStore(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:checkpoints_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SyncCheckpoint{}))
	store := NewGormCheckpointStore(db)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "b1", t1))
	require.NoError(t, store.Save(ctx, "b1", t1.Add(time.Minute)))

	got, ok, err := store.Get(ctx, "b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, t1.Add(time.Minute).Equal(got))

	var count int64
	db.Model(&models.SyncCheckpoint{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
