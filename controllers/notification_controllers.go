package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-dashboard/middlewares"
	"github.com/yeremiapane/restaurant-dashboard/services"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

type NotificationController struct {
	Log *services.NotificationLog
}

func NewNotificationController(log *services.NotificationLog) *NotificationController {
	return &NotificationController{Log: log}
}

// GetAllNotifications -> notifikasi terbaru, bisa difilter ?business_id=
func (nc *NotificationController) GetAllNotifications(c *gin.Context) {
	var allowed func(string) bool
	if claims := middlewares.Claims(c); claims != nil {
		allowed = claims.CanAccess
	}
	utils.RespondJSON(c, http.StatusOK, "Recent notifications", nc.Log.Recent(c.Query("business_id"), allowed))
}
