package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-dashboard/kds"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// PushController menerima event dari order producer yang berjalan di proses
// yang sama (PUSH_TRANSPORT=bus) lalu meneruskannya ke push channel.
type PushController struct {
	Bus *kds.BusDialer
}

func NewPushController(bus *kds.BusDialer) *PushController {
	return &PushController{Bus: bus}
}

var pushEvents = map[string]bool{
	kds.EventNewOrder:           true,
	kds.EventOrderStatusUpdated: true,
	kds.EventPaymentUpdated:     true,
}

// PublishEvent -> POST /businesses/:business_id/push/:event, body = payload event
func (pc *PushController) PublishEvent(c *gin.Context) {
	event := c.Param("event")
	if !pushEvents[event] {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown push event %q", event))
		return
	}
	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload) == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid event payload"))
		return
	}
	if err := pc.Bus.Publish(c.Param("business_id"), event, payload); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusAccepted, "Event published", gin.H{"event": event})
}
