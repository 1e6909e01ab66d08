package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mshiraki/trainlog/internal/adapters/handler/http/middleware"
	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/services"
)

type RuleHandler struct {
	svc *services.RuleService
}

func NewRuleHandler(svc *services.RuleService) *RuleHandler {
	return &RuleHandler{
		svc: svc,
	}
}

type createRuleRequest struct {
	SessionID    string  `json:"session_id" binding:"required"`
	RuleType     string  `json:"rule_type" binding:"required"`
	Weekdays     []int   `json:"weekdays"`
	IntervalDays int     `json:"interval_days"`
	StartDate    string  `json:"start_date" binding:"required"`
	EndDate      *string `json:"end_date"`
}

type updateRuleRequest struct {
	RuleType     string  `json:"rule_type" binding:"required"`
	Weekdays     []int   `json:"weekdays"`
	IntervalDays int     `json:"interval_days"`
	StartDate    string  `json:"start_date" binding:"required"`
	EndDate      *string `json:"end_date"`
	IsEnabled    bool    `json:"is_enabled"`
	Version      int     `json:"version"`
}

func (h *RuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/rules")
	{
		rules.POST("", h.Create)
		rules.GET("", h.List)
		rules.GET("/:id", h.Get)
		rules.PUT("/:id", h.Update)
		rules.DELETE("/:id", h.Delete)
		rules.POST("/:id/sync", h.Sync)
	}
}

// parseRuleDates validates the date strings at the edge so the service and
// domain layers only ever see well-formed keys.
func parseRuleDates(start string, end *string) (domain.DayKey, *domain.DayKey, error) {
	startKey, err := domain.ParseDayKey(start)
	if err != nil {
		return "", nil, err
	}

	var endKey *domain.DayKey
	if end != nil && *end != "" {
		k, err := domain.ParseDayKey(*end)
		if err != nil {
			return "", nil, err
		}
		endKey = &k
	}

	return startKey, endKey, nil
}

func ruleErrStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrRuleNotFound):
		return http.StatusNotFound, "rule not found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, domain.ErrInvalidRuleType),
		errors.Is(err, domain.ErrEmptyWeekdays),
		errors.Is(err, domain.ErrInvalidWeekdays),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrEndBeforeStart),
		errors.Is(err, domain.ErrInvalidDayKey),
		errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *RuleHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startKey, endKey, err := parseRuleDates(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.svc.Create(c.Request.Context(), services.CreateRuleInput{
		UserID:       userID,
		SessionID:    req.SessionID,
		RuleType:     req.RuleType,
		Weekdays:     req.Weekdays,
		IntervalDays: req.IntervalDays,
		StartDate:    startKey,
		EndDate:      endKey,
	})
	if err != nil {
		status, msg := ruleErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

func (h *RuleHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *RuleHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	rule, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status, msg := ruleErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startKey, endKey, err := parseRuleDates(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.svc.Update(c.Request.Context(), services.UpdateRuleInput{
		ID:           c.Param("id"),
		UserID:       userID,
		RuleType:     req.RuleType,
		Weekdays:     req.Weekdays,
		IntervalDays: req.IntervalDays,
		StartDate:    startKey,
		EndDate:      endKey,
		IsEnabled:    req.IsEnabled,
		Version:      req.Version,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRuleConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "version conflict",
				"message": "Rule has been modified elsewhere. Please refresh.",
			})
			return
		}
		status, msg := ruleErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		status, msg := ruleErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RuleHandler) Sync(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.TriggerSync(c.Request.Context(), c.Param("id"), userID); err != nil {
		status, msg := ruleErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "sync scheduled"})
}
