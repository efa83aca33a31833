// Package api is the operator-facing HTTP surface: starting and watching
// sync runs, browsing sessions and logs, and managing settings, category
// mappings and cleanups.
package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the API routes.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		syncGroup := v1.Group("/sync")
		{
			syncGroup.POST("", h.StartSync)
			syncGroup.GET("/status", h.SyncStatus)
			syncGroup.POST("/cancel", h.CancelSync)
			syncGroup.POST("/test", h.TestFeed)
		}

		v1.GET("/sessions", h.ListSessions)
		v1.GET("/sessions/:id", h.GetSession)
		v1.GET("/logs", h.ListLogs)

		v1.GET("/settings", h.ListSettings)
		v1.PUT("/settings/:key", h.UpdateSetting)

		categories := v1.Group("/categories")
		{
			categories.GET("/stats", h.CategoryStats)
			categories.GET("/mappings", h.ListMappings)
			categories.POST("/mappings", h.AddMapping)
			categories.DELETE("/mappings/:from", h.RemoveMapping)
			categories.POST("/cleanup", h.CleanupCategories)
		}

		v1.POST("/images/cleanup", h.CleanupImages)
		v1.POST("/products/:id/restore", h.RestoreProduct)
	}

	return r
}
