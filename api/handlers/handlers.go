package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/invoice-aggregator/internal/apperr"
	"github.com/feichai0017/invoice-aggregator/internal/service/report"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/queue"
)

type Handlers struct {
	Report *ReportHandler
	Health *HealthHandler
}

// NewHandlers wires the HTTP handlers. q may be nil, which disables async warm.
func NewHandlers(svc report.Reporter, q queue.Queue, log logger.Logger) *Handlers {
	log = log.Named("api")
	return &Handlers{
		Report: NewReportHandler(svc, q, log),
		Health: NewHealthHandler(svc, log),
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func handleError(c *gin.Context, log logger.Logger, status int, message string, err error) {
	resp := ErrorResponse{OK: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
		resp.Kind = string(apperr.KindOf(err))
	} else {
		resp.Error = message
	}

	log.Error(message,
		logger.Int("status", status),
		logger.String("path", c.FullPath()),
		logger.Error(err),
	)
	c.AbortWithStatusJSON(status, resp)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}
