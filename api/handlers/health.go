package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/invoice-aggregator/internal/service/report"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

type HealthHandler struct {
	service report.Reporter
	logger  logger.Logger
}

func NewHealthHandler(service report.Reporter, log logger.Logger) *HealthHandler {
	return &HealthHandler{service: service, logger: log}
}

// Check round-trips a probe value through the state store.
func (h *HealthHandler) Check(c *gin.Context) {
	noStore(c)
	if err := h.service.Health(c.Request.Context()); err != nil {
		handleError(c, h.logger, http.StatusServiceUnavailable, "State store unavailable", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "healthy"})
}
