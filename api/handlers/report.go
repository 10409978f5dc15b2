package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/feichai0017/invoice-aggregator/internal/service/report"
	"github.com/feichai0017/invoice-aggregator/pkg/converters"
	"github.com/feichai0017/invoice-aggregator/pkg/logger"
	"github.com/feichai0017/invoice-aggregator/pkg/queue"
)

type ReportHandler struct {
	service report.Reporter
	queue   queue.Queue
	logger  logger.Logger
}

// EnqueueResponse answers an async warm request.
type EnqueueResponse struct {
	OK     bool   `json:"ok"`
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

type ResetResponse struct {
	OK      bool `json:"ok"`
	Cleared bool `json:"cleared"`
}

func NewReportHandler(service report.Reporter, q queue.Queue, log logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		queue:   q,
		logger:  log,
	}
}

// GetStatus serves the dashboard view. It always answers 200.
func (h *ReportHandler) GetStatus(c *gin.Context) {
	noStore(c)
	c.JSON(http.StatusOK, h.service.Status(c.Request.Context()))
}

func (h *ReportHandler) GetProgress(c *gin.Context) {
	noStore(c)
	progress, err := h.service.Progress(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to read progress", err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Warm runs one step, or steps until done when untilDone=true (bounded by maxSteps).
func (h *ReportHandler) Warm(c *gin.Context) {
	noStore(c)
	ctx := c.Request.Context()

	untilDone, _ := strconv.ParseBool(c.Query("untilDone"))
	if !untilDone {
		res, err := h.service.Warm(ctx)
		if err != nil {
			handleError(c, h.logger, http.StatusInternalServerError, "Warm failed", err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	maxSteps := 0
	if v := c.Query("maxSteps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			handleError(c, h.logger, http.StatusBadRequest, "Invalid maxSteps", fmt.Errorf("maxSteps=%q", v))
			return
		}
		maxSteps = n
	}
	res, err := h.service.WarmUntilDone(ctx, maxSteps)
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Warm failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// WarmAsync enqueues a self-chaining warm task for the worker.
func (h *ReportHandler) WarmAsync(c *gin.Context) {
	if h.queue == nil {
		handleError(c, h.logger, http.StatusServiceUnavailable, "Task queue is not configured", nil)
		return
	}

	task := &queue.Task{
		ID:        uuid.New().String(),
		Type:      queue.TaskTypeReportWarm,
		Priority:  1,
		Payload:   queue.WarmPayload{Chain: true, Origin: "api"},
		CreatedAt: time.Now(),
	}
	if err := h.queue.Enqueue(c.Request.Context(), task); err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to enqueue warm task", err)
		return
	}

	h.logger.Info("Enqueued warm task", logger.String("task_id", task.ID))
	c.JSON(http.StatusAccepted, EnqueueResponse{OK: true, TaskID: task.ID, Status: "queued"})
}

func (h *ReportHandler) GetTask(c *gin.Context) {
	if h.queue == nil {
		handleError(c, h.logger, http.StatusServiceUnavailable, "Task queue is not configured", nil)
		return
	}
	taskID := c.Param("taskId")
	status, err := h.queue.GetTaskStatus(c.Request.Context(), taskID)
	if errors.Is(err, queue.ErrTaskNotFound) {
		handleError(c, h.logger, http.StatusNotFound, "Task not found", err)
		return
	}
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to get task status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *ReportHandler) Reset(c *gin.Context) {
	noStore(c)
	if err := h.service.Reset(c.Request.Context()); err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Reset failed", err)
		return
	}
	c.JSON(http.StatusOK, ResetResponse{OK: true, Cleared: true})
}

// Export downloads the published report as xlsx (default) or json.
func (h *ReportHandler) Export(c *gin.Context) {
	conv, err := converters.ForFormat(c.Query("format"))
	if err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "Unsupported format", err)
		return
	}

	agg, ok, err := h.service.Report(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to read report", err)
		return
	}
	if !ok {
		handleError(c, h.logger, http.StatusConflict, "Report is not ready", nil)
		return
	}

	data, err := conv.Convert(agg)
	if err != nil {
		handleError(c, h.logger, http.StatusInternalServerError, "Failed to convert report", err)
		return
	}

	filename := "sales-report-" + agg.Meta.GeneratedAt.UTC().Format("20060102-150405") + conv.Extension()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, conv.ContentType(), data)
}
