package http

import (
	"github.com/gin-gonic/gin"

	"github.com/davicafu/csamarket/pkg/middleware"
)

func RegisterFarmRoutes(api *gin.RouterGroup, handler *FarmHandler) {
	farms := api.Group("/farms")
	{
		farms.GET("", handler.ListFarms)
		farms.GET("/:id", handler.GetFarm)

		if handler.analytics != nil {
			farms.GET("/analytics/top-searches", handler.TopSearches)
		}

		auth := farms.Group("", middleware.RequireUser())
		auth.GET("/user/me", handler.ListMyFarms)
		auth.POST("", handler.CreateFarm)
		auth.PUT("/:id", handler.UpdateFarm)
		auth.DELETE("/:id", handler.DeleteFarm)
	}
}
