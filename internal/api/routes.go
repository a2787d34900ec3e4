package api

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the authenticated endpoints on rg.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/profile", h.GetProfile)
	rg.PUT("/profile", h.PutProfile)

	rg.GET("/meal-logs", h.ListMealLogs)
	rg.GET("/meal-logs/:date", h.GetMealLog)
	rg.PUT("/meal-logs/:date", h.PutMealLog)

	rg.POST("/recommendations", h.Recommend)
	rg.POST("/analysis", h.Analyze)
}
