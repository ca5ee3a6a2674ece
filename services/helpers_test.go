package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/remote"
)

// fakeCatalogRemote -> Remote Service palsu; setiap operasi bisa diganti per test
type fakeCatalogRemote struct {
	create func(ctx context.Context, level catalog.Level, parentID string, payload interface{}) (models.Patch, error)
	update func(ctx context.Context, level catalog.Level, id string, patch models.Patch) (models.Patch, error)
	delete func(ctx context.Context, level catalog.Level, id string) error
}

func (f *fakeCatalogRemote) Create(ctx context.Context, level catalog.Level, parentID string, payload interface{}) (models.Patch, error) {
	return f.create(ctx, level, parentID, payload)
}

func (f *fakeCatalogRemote) Update(ctx context.Context, level catalog.Level, id string, patch models.Patch) (models.Patch, error) {
	return f.update(ctx, level, id, patch)
}

func (f *fakeCatalogRemote) Delete(ctx context.Context, level catalog.Level, id string) error {
	return f.delete(ctx, level, id)
}

// fakeSyncRemote -> endpoint sync palsu yang mencatat parameter since
type fakeSyncRemote struct {
	mu     sync.Mutex
	calls  []*time.Time
	respFn func(ctx context.Context, businessID string, since *time.Time) (remote.SyncResponse, error)
}

func (f *fakeSyncRemote) SyncOrders(ctx context.Context, businessID string, since *time.Time) (remote.SyncResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, since)
	f.mu.Unlock()
	return f.respFn(ctx, businessID, since)
}

func (f *fakeSyncRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// countingCheckpoints -> MemoryCheckpointStore yang menghitung Save
type countingCheckpoints struct {
	*MemoryCheckpointStore
	mu    sync.Mutex
	saves int
}

func newCountingCheckpoints() *countingCheckpoints {
	return &countingCheckpoints{MemoryCheckpointStore: NewMemoryCheckpointStore()}
}

func (c *countingCheckpoints) Save(ctx context.Context, businessID string, t time.Time) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.MemoryCheckpointStore.Save(ctx, businessID, t)
}

func (c *countingCheckpoints) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}
