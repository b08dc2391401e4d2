package http

import (
	"github.com/gin-gonic/gin"

	"github.com/davicafu/csamarket/pkg/middleware"
)

func RegisterShareRoutes(api *gin.RouterGroup, handler *ShareHandler) {
	shares := api.Group("/shares")
	{
		shares.GET("", handler.ListShares)
		shares.GET("/farm/:farmId", handler.ListByFarm)
		shares.GET("/:id", handler.GetShare)

		auth := shares.Group("", middleware.RequireUser())
		auth.GET("/user/me", handler.ListMyShares)
		auth.POST("/farm/:farmId", handler.CreateShare)
		auth.PUT("/:id", handler.UpdateShare)
		auth.PUT("/:id/availability", handler.SetAvailability)
		auth.DELETE("/:id", handler.DeleteShare)
	}
}
