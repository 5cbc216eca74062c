package routes

import (
	"github.com/gin-gonic/gin"

	"loopchat_backend/internal/handlers"
	"loopchat_backend/internal/middleware"
)

// RegisterRoutes mounts the REST API and the websocket endpoint.
func RegisterRoutes(router *gin.Engine, appHandlers *handlers.AppHandlers) {
	api := router.Group("/api/v1")
	{
		appHandlers.Auth.RegisterRoutes(api)
		appHandlers.User.RegisterRoutes(api)
		appHandlers.Chat.RegisterRoutes(api)
		appHandlers.Poll.RegisterRoutes(api)
	}

	wsGroup := router.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware())
	{
		wsGroup.GET("", appHandlers.WS.Serve)
	}
}
