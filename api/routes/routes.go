package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/invoice-aggregator/api/handlers"
	"github.com/feichai0017/invoice-aggregator/api/middleware"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

// SetupRoutes registers every route on r.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, log logger.Logger) {
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health.Check)

	rep := v1.Group("/report")
	{
		rep.GET("/status", h.Report.GetStatus)
		rep.GET("/progress", h.Report.GetProgress)
		rep.POST("/warm", h.Report.Warm)
		rep.POST("/warm/async", h.Report.WarmAsync)
		rep.GET("/tasks/:taskId", h.Report.GetTask)
		rep.POST("/reset", h.Report.Reset)
		rep.GET("/export", h.Report.Export)
	}
}
