package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-dashboard/models"
)

// CheckpointStore menyimpan lastSyncTime per business
type CheckpointStore interface {
	Get(ctx context.Context, businessID string) (time.Time, bool, error)
	Save(ctx context.Context, businessID string, t time.Time) error
}

type MemoryCheckpointStore struct {
	mu    sync.RWMutex
	times map[string]time.Time
}

func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{times: make(map[string]time.Time)}
}

func (m *MemoryCheckpointStore) Get(_ context.Context, businessID string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.times[businessID]
	return t, ok, nil
}

func (m *MemoryCheckpointStore) Save(_ context.Context, businessID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.times[businessID] = t
	return nil
}

// GormCheckpointStore -> checkpoint di tabel sync_checkpoints supaya tahan restart
type GormCheckpointStore struct {
	DB *gorm.DB
}

func NewGormCheckpointStore(db *gorm.DB) *GormCheckpointStore {
	return &GormCheckpointStore{DB: db}
}

func (g *GormCheckpointStore) Get(ctx context.Context, businessID string) (time.Time, bool, error) {
	var cp models.SyncCheckpoint
	err := g.DB.WithContext(ctx).Where("business_id = ?", businessID).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load checkpoint %s: %w", businessID, err)
	}
	return cp.LastSyncTime, true, nil
}

func (g *GormCheckpointStore) Save(ctx context.Context, businessID string, t time.Time) error {
	cp := models.SyncCheckpoint{
		BusinessID:   businessID,
		LastSyncTime: t.UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	err := g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sync_time", "updated_at"}),
	}).Create(&cp).Error
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", businessID, err)
	}
	return nil
}
