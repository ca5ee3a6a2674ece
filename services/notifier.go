package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-dashboard/kds"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// Notifier menerima notifikasi sukses/gagal untuk user dashboard
type Notifier interface {
	Notify(n models.Notification)
}

func newNotification(level, businessID, title, message string) models.Notification {
	return models.Notification{
		Level:      level,
		Title:      title,
		Message:    message,
		BusinessID: businessID,
		CreatedAt:  time.Now(),
	}
}

// LogNotifier -> tulis notifikasi ke logrus
type LogNotifier struct{}

func (LogNotifier) Notify(n models.Notification) {
	fields := logrus.Fields{
		"business_id": n.BusinessID,
		"title":       n.Title,
	}
	if n.Level == models.NotificationError {
		utils.ErrorLogger.WithFields(fields).Warn(n.Message)
		return
	}
	utils.InfoLogger.WithFields(fields).Info(n.Message)
}

// HubNotifier -> siarkan notifikasi ke dashboard lewat websocket hub
type HubNotifier struct {
	Hub *kds.Hub
}

func (h HubNotifier) Notify(n models.Notification) {
	if h.Hub != nil {
		h.Hub.BroadcastNotification(n)
	}
}

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n models.Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}

// NotificationLog keeps the most recent notifications in memory so the
// dashboard can fetch what it missed while disconnected.
type NotificationLog struct {
	mu    sync.Mutex
	limit int
	items []models.Notification
}

func NewNotificationLog(limit int) *NotificationLog {
	if limit <= 0 {
		limit = 100
	}
	return &NotificationLog{limit: limit}
}

func (l *NotificationLog) Notify(n models.Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, n)
	if len(l.items) > l.limit {
		l.items = append([]models.Notification(nil), l.items[len(l.items)-l.limit:]...)
	}
}

// Recent -> notifikasi terbaru dulu; businessID kosong = semua business
func (l *NotificationLog) Recent(businessID string, allowed func(string) bool) []models.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Notification, 0, len(l.items))
	for i := len(l.items) - 1; i >= 0; i-- {
		n := l.items[i]
		if businessID != "" && n.BusinessID != businessID {
			continue
		}
		if allowed != nil && n.BusinessID != "" && !allowed(n.BusinessID) {
			continue
		}
		out = append(out, n)
	}
	return out
}
