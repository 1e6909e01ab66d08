package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mshiraki/trainlog/internal/adapters/handler/http/middleware"
	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/services"
)

type ReminderHandler struct {
	svc *services.ReminderService
}

func NewReminderHandler(svc *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{
		svc: svc,
	}
}

type createReminderRequest struct {
	SessionID  string  `json:"session_id" binding:"required"`
	Frequency  string  `json:"frequency" binding:"required"`
	TimeOfDay  string  `json:"time_of_day" binding:"required"`
	StartDate  string  `json:"start_date" binding:"required"`
	EndDate    *string `json:"end_date"`
	DayOfWeek  *int    `json:"day_of_week"`
	DayOfMonth *int    `json:"day_of_month"`
}

type updateReminderRequest struct {
	Frequency  string  `json:"frequency" binding:"required"`
	TimeOfDay  string  `json:"time_of_day" binding:"required"`
	StartDate  string  `json:"start_date" binding:"required"`
	EndDate    *string `json:"end_date"`
	DayOfWeek  *int    `json:"day_of_week"`
	DayOfMonth *int    `json:"day_of_month"`
	IsEnabled  bool    `json:"is_enabled"`
}

func (h *ReminderHandler) RegisterRoutes(router *gin.RouterGroup) {
	reminders := router.Group("/reminders")
	{
		reminders.POST("", h.Create)
		reminders.GET("", h.List)
		reminders.GET("/:id", h.Get)
		reminders.PUT("/:id", h.Update)
		reminders.DELETE("/:id", h.Delete)
	}
}

func reminderErrStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrReminderNotFound):
		return http.StatusNotFound, "reminder not found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, domain.ErrInvalidFrequency),
		errors.Is(err, domain.ErrInvalidTimeOfDay),
		errors.Is(err, domain.ErrInvalidDayOfWeek),
		errors.Is(err, domain.ErrInvalidDayOfMonth),
		errors.Is(err, domain.ErrEndBeforeStart),
		errors.Is(err, domain.ErrInvalidDayKey),
		errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *ReminderHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startKey, endKey, err := parseRuleDates(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reminder, err := h.svc.Create(c.Request.Context(), services.CreateReminderInput{
		UserID:     userID,
		SessionID:  req.SessionID,
		Frequency:  req.Frequency,
		TimeOfDay:  req.TimeOfDay,
		StartDate:  startKey,
		EndDate:    endKey,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
	})
	if err != nil {
		status, msg := reminderErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, reminder)
}

func (h *ReminderHandler) List(c *gin.Context) {
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

func (h *ReminderHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	reminder, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status, msg := reminderErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, reminder)
}

func (h *ReminderHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req updateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startKey, endKey, err := parseRuleDates(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reminder, err := h.svc.Update(c.Request.Context(), services.UpdateReminderInput{
		ID:         c.Param("id"),
		UserID:     userID,
		Frequency:  req.Frequency,
		TimeOfDay:  req.TimeOfDay,
		StartDate:  startKey,
		EndDate:    endKey,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
		IsEnabled:  req.IsEnabled,
	})
	if err != nil {
		status, msg := reminderErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, reminder)
}

func (h *ReminderHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		status, msg := reminderErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Status(http.StatusNoContent)
}
