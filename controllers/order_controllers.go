package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-dashboard/remote"
	"github.com/yeremiapane/restaurant-dashboard/services"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

type OrderController struct {
	Orders *services.OrderStore
	Sync   *services.OrderSyncEngine
}

func NewOrderController(orders *services.OrderStore, engine *services.OrderSyncEngine) *OrderController {
	return &OrderController{Orders: orders, Sync: engine}
}

// GetAllOrders -> order lokal sebuah business + revision
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	businessID := c.Param("business_id")
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{
		"revision": oc.Orders.Revision(businessID),
		"orders":   oc.Orders.Orders(businessID),
	})
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	order, ok := oc.Orders.Order(c.Param("business_id"), c.Param("order_id"))
	if !ok {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("order %s not found", c.Param("order_id")))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetSyncState -> state engine + lastSyncTime (null kalau belum pernah sync)
func (oc *OrderController) GetSyncState(c *gin.Context) {
	businessID := c.Param("business_id")
	t, ok, err := oc.Sync.LastSyncTime(c.Request.Context(), businessID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	var last *time.Time
	if ok {
		last = &t
	}
	utils.RespondJSON(c, http.StatusOK, "Sync state", gin.H{
		"state":          oc.Sync.State(businessID),
		"last_sync_time": last,
	})
}

// TriggerSync -> jalankan satu pull sync sekarang
func (oc *OrderController) TriggerSync(c *gin.Context) {
	res, err := oc.Sync.SyncOrders(c.Request.Context(), c.Param("business_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadGateway, fmt.Errorf("sync failed: %s", remote.ErrorMessage(err)))
		return
	}
	msg := "Sync finished"
	if res.Skipped {
		msg = "Sync already running"
	}
	utils.RespondJSON(c, http.StatusOK, msg, res)
}
