package models

import "time"

// SyncCheckpoint -> lastSyncTime per business, disimpan supaya sinkronisasi
// order bisa lanjut dari window terakhir setelah restart
type SyncCheckpoint struct {
	BusinessID   string    `gorm:"primaryKey;type:varchar(64)" json:"business_id"`
	LastSyncTime time.Time `gorm:"not null" json:"last_sync_time"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}
