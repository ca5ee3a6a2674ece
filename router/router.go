package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-dashboard/controllers"
	"github.com/yeremiapane/restaurant-dashboard/middlewares"
)

// Deps -> controller yang dipasang ke router
type Deps struct {
	Menus         *controllers.MenuController
	Orders        *controllers.OrderController
	Notifications *controllers.NotificationController
	KDS           *controllers.KDSController
	Push          *controllers.PushController // nil kecuali PUSH_TRANSPORT=bus

	CORSOrigins []string
	RateLimiter *middlewares.RateLimiter
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigins...))
	r.Use(middlewares.LoggerMiddleware())
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.RateLimit())
	}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Endpoint WebSocket dashboard (token lewat ?token=)
	r.GET("/ws/dashboard", middlewares.WebSocketAuthMiddleware(), d.KDS.KDSHandler)

	// ----------------------------------------------------------------
	//                      AUTH ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		api.GET("/menus", d.Menus.GetAllMenus)
		api.GET("/notifications", d.Notifications.GetAllNotifications)

		api.GET("/catalog/*path", d.Menus.GetNode)

		// mutasi catalog hanya untuk admin / manager
		editor := api.Group("/catalog")
		editor.Use(middlewares.RoleCheck("manager"))
		{
			editor.POST("/*path", d.Menus.CreateNode)
			editor.PATCH("/*path", d.Menus.UpdateNode)
			editor.DELETE("/*path", d.Menus.DeleteNode)
		}

		business := api.Group("/businesses/:business_id")
		business.Use(middlewares.BusinessAccess())
		{
			business.GET("/orders", d.Orders.GetAllOrders)
			business.GET("/orders/:order_id", d.Orders.GetOrderByID)
			business.GET("/sync-state", d.Orders.GetSyncState)
			business.POST("/sync", d.Orders.TriggerSync)
			if d.Push != nil {
				business.POST("/push/:event", middlewares.RoleCheck("admin"), d.Push.PublishEvent)
			}
		}
	}

	return r
}
