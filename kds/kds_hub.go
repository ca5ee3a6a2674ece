package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// Event dashboard
const (
	EventOrdersChanged  = "orders_changed"
	EventCatalogChanged = "catalog_changed"
	EventNotification   = "notification"
)

type Message struct {
	Event      string      `json:"event"`
	BusinessID string      `json:"business_id,omitempty"`
	Data       interface{} `json:"data"`
}

// Client -> satu koneksi dashboard dan business yang boleh dilihatnya
type Client struct {
	UserID string
	Role   string
	Access func(businessID string) bool
}

func (c Client) allowed(businessID string) bool {
	if businessID == "" || c.Access == nil {
		return true
	}
	return c.Access(businessID)
}

const (
	// writeWait -> batas waktu satu write ke browser
	writeWait = 10 * time.Second
	sendQueue = 64
)

type peer struct {
	Client
	conn *websocket.Conn
	send chan []byte
}

// writePump -> satu-satunya goroutine yang menulis ke conn
func (p *peer) writePump() {
	for data := range p.send {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Warnf("dashboard client %s write failed: %v", p.UserID, err)
			p.conn.Close()
			return
		}
	}
}

// Hub menampung semua koneksi dashboard dan menyiarkan perubahan ke mereka.
// Broadcast hanya mengantrikan pesan, jadi client lambat tidak menahan pemanggil.
type Hub struct {
	clients map[*websocket.Conn]*peer
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*peer)}
}

// RegisterClient -> menambahkan connection ke hub
func (h *Hub) RegisterClient(conn *websocket.Conn, client Client) {
	p := &peer{Client: client, conn: conn, send: make(chan []byte, sendQueue)}
	h.mutex.Lock()
	h.clients[conn] = p
	count := len(h.clients)
	h.mutex.Unlock()
	go p.writePump()

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id": client.UserID,
		"role":    client.Role,
		"clients": count,
	}).Info("dashboard client connected")
}

// UnregisterClient -> melepaskan connection
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.dropLocked(conn)
}

func (h *Hub) dropLocked(conn *websocket.Conn) {
	p, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(p.send)
	conn.Close()
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// BroadcastOrdersChanged -> daftar order sebuah business berubah
func (h *Hub) BroadcastOrdersChanged(businessID string, revision uint64) {
	h.Broadcast(Message{
		Event:      EventOrdersChanged,
		BusinessID: businessID,
		Data:       map[string]interface{}{"revision": revision},
	})
}

// BroadcastCatalogChanged -> isi catalog tree berubah
func (h *Hub) BroadcastCatalogChanged() {
	h.Broadcast(Message{Event: EventCatalogChanged})
}

// BroadcastNotification -> toast sukses/gagal ke dashboard
func (h *Hub) BroadcastNotification(n models.Notification) {
	h.Broadcast(Message{
		Event:      EventNotification,
		BusinessID: n.BusinessID,
		Data:       n,
	})
}

// Broadcast -> antrikan pesan ke semua client yang berhak; client yang antreannya
// penuh dilepas
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, p := range h.clients {
		if !p.allowed(msg.BusinessID) {
			continue
		}
		select {
		case p.send <- data:
		default:
			utils.ErrorLogger.Warnf("dashboard client %s too slow, %s dropped and client released", p.UserID, msg.Event)
			h.dropLocked(conn)
		}
	}
}
