package models

import (
	"time"
)

const (
	NotificationSuccess = "success"
	NotificationError   = "error"
	NotificationInfo    = "info"
)

// Notification -> pesan untuk user dashboard (toast), bukan record database
type Notification struct {
	Level      string    `json:"level"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	BusinessID string    `json:"business_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
