package Controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-dashboard/controllers"
	"github.com/yeremiapane/restaurant-dashboard/kds"
	"github.com/yeremiapane/restaurant-dashboard/middlewares"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

func setupPushRouter(bus *kds.BusDialer) *gin.Engine {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	pushCtrl := controllers.NewPushController(bus)
	router := gin.New()
	business := router.Group("/api/businesses/:business_id", middlewares.AuthMiddleware(), middlewares.BusinessAccess())
	business.POST("/push/:event", middlewares.RoleCheck("admin"), pushCtrl.PublishEvent)
	return router
}

func TestPublishEventReachesChannel(t *testing.T) {
	bus := kds.NewBusDialer(nil)
	router := setupPushRouter(bus)

	ch, err := bus.Dial(context.Background(), "b1")
	require.NoError(t, err)
	defer ch.Close()
	got := make(chan models.Order, 1)
	ch.Subscribe(kds.EventNewOrder, func(raw json.RawMessage) {
		var o models.Order
		if json.Unmarshal(raw, &o) == nil {
			got <- o
		}
	})

	w, _ := doRequest(t, router, "POST", "/api/businesses/b1/push/new_order", tokenFor(t, "admin", "b1"),
		map[string]interface{}{"id": "o1", "status": "pending"})
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case o := <-got:
		assert.Equal(t, "o1", o.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the channel")
	}
}

func TestPublishEventValidation(t *testing.T) {
	router := setupPushRouter(kds.NewBusDialer(nil))
	admin := tokenFor(t, "admin", "b1")

	w, _ := doRequest(t, router, "POST", "/api/businesses/b1/push/catalog_changed", admin, map[string]string{"id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, router, "POST", "/api/businesses/b1/push/new_order", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, router, "POST", "/api/businesses/b1/push/new_order", tokenFor(t, "staff", "b1"), map[string]string{"id": "o1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doRequest(t, router, "POST", "/api/businesses/b2/push/new_order", tokenFor(t, "manager", "b1"), map[string]string{"id": "o1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
