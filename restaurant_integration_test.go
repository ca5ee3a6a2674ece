package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
	"github.com/yeremiapane/restaurant-dashboard/config"
	"github.com/yeremiapane/restaurant-dashboard/kds"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	os.Exit(m.Run())
}

// fakeRemote -> Remote Service palsu untuk satu business b1
type fakeRemote struct {
	mu        sync.Mutex
	syncCalls []string
	stamp     time.Time
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/businesses/b1/menus":
		writeJSON(w, http.StatusOK, []models.Menu{{
			ID:   "m1",
			Name: "Carta",
			Sections: []models.Section{{
				ID:   "s1",
				Name: "Entradas",
				Products: []models.Product{{ID: "p1", Name: "Soup", FinalPrice: 12000}},
			}},
		}})
	case r.Method == http.MethodGet && r.URL.Path == "/businesses/b1/orders/sync":
		since := r.URL.Query().Get("last_sync_time")
		f.mu.Lock()
		f.syncCalls = append(f.syncCalls, since)
		f.mu.Unlock()
		var orders []models.Order
		if since == "" {
			orders = []models.Order{{ID: "o1", Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"new_or_updated_orders": orders,
			"timestamp":             f.stamp,
		})
	case r.Method == http.MethodPost && r.URL.Path == "/menus/m1/sections":
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		body["id"] = "s-2"
		writeJSON(w, http.StatusCreated, body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(utils.JSONResponse{Status: true, Message: "ok", Data: data})
}

func apiCall(t *testing.T, base, method, path, token string, body interface{}) (int, utils.JSONResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, base+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out utils.JSONResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// TestEndToEndIntegration menguji flow utama:
// 1. Start: load catalog, initial sync, subscribe push
// 2. Dashboard websocket terhubung
// 3. Create section -> reconciled dengan id canonical
// 4. Push status order -> order store + orders_changed ke dashboard
// 5. Shutdown
func TestEndToEndIntegration(t *testing.T) {
	remoteSrv := httptest.NewServer(&fakeRemote{stamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)})
	defer remoteSrv.Close()

	cfg := config.Config{
		RemoteBaseURL: remoteSrv.URL,
		RemoteTimeout: 5 * time.Second,
		BusinessIDs:   []string{"b1"},
		SyncSchedule:  "@every 1h",
		DBDriver:      "sqlite",
		DBDSN:         "file:integration_test?mode=memory&cache=shared",
		StalePolicy:   "discard",
	}
	db, err := config.InitDB(cfg)
	require.NoError(t, err)

	bus := kds.NewBusDialer(nil)
	app, err := newApp(cfg, db, bus)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.Start(ctx))
	defer app.Shutdown()

	// 1. catalog + order awal
	menu, ok := app.Catalog.Menu("m1")
	require.True(t, ok)
	assert.Equal(t, "b1", menu.BusinessID)
	assert.Eventually(t, func() bool {
		_, ok := app.Orders.Order("b1", "o1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	api := httptest.NewServer(app.Router)
	defer api.Close()
	token, err := utils.GenerateToken("u1", "manager", []string{"b1"}, time.Hour)
	require.NoError(t, err)

	// 2. dashboard websocket
	wsURL := "ws" + strings.TrimPrefix(api.URL, "http") + "/ws/dashboard?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return app.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// 3. create section
	code, resp := apiCall(t, api.URL, "POST", "/api/catalog/menus/m1/sections", token, map[string]interface{}{"name": "Postres"})
	require.Equal(t, http.StatusAccepted, code, resp.Message)
	assert.Eventually(t, func() bool {
		s, ok := app.Catalog.Section(catalog.Path{"m1", "s-2"})
		return ok && s.Name == "Postres"
	}, 2*time.Second, 10*time.Millisecond)

	// 4. push status update
	require.NoError(t, bus.Publish("b1", kds.EventOrderStatusUpdated, map[string]string{
		"order_id": "o1",
		"status":   models.OrderStatusConfirmed,
	}))
	assert.Eventually(t, func() bool {
		o, _ := app.Orders.Order("b1", "o1")
		return o.Status == models.OrderStatusConfirmed
	}, 2*time.Second, 10*time.Millisecond)

	code, resp = apiCall(t, api.URL, "GET", "/api/businesses/b1/orders/o1", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Status)

	sawOrders := false
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for !sawOrders {
		var msg kds.Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		sawOrders = msg.Event == kds.EventOrdersChanged && msg.BusinessID == "b1"
	}
	assert.True(t, sawOrders, "dashboard should receive orders_changed")

	// checkpoint tersimpan di database
	last, ok, err := app.Sync.LastSyncTime(ctx, "b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2024, last.Year())
}
