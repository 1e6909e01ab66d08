package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mshiraki/trainlog/internal/core/services"
)

// BatchHandler exposes the daily generation run for operators and the cron
// trigger. Per-rule failures never fail the run; the summary carries the
// counts so callers can alert on fail_count instead of the status code.
type BatchHandler struct {
	svc *services.ScheduleService
}

func NewBatchHandler(svc *services.ScheduleService) *BatchHandler {
	return &BatchHandler{
		svc: svc,
	}
}

func (h *BatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	batch := router.Group("/batch")
	{
		batch.POST("/generate", h.Generate)
	}
}

func (h *BatchHandler) Generate(c *gin.Context) {
	summary, err := h.svc.RunDailyBatch(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch could not start"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
