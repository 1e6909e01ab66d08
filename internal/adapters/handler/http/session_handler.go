package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mshiraki/trainlog/internal/adapters/handler/http/middleware"
	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/services"
)

type SessionHandler struct {
	svc *services.SessionService
}

func NewSessionHandler(svc *services.SessionService) *SessionHandler {
	return &SessionHandler{
		svc: svc,
	}
}

type createSessionRequest struct {
	Name string `json:"name" binding:"required"`
	Note string `json:"note"`
}

type updateSessionRequest struct {
	Name string `json:"name" binding:"required"`
	Note string `json:"note"`
}

type reorderSessionRequest struct {
	SortOrder int `json:"sort_order" binding:"min=0"`
}

func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	sessions := router.Group("/sessions")
	{
		sessions.POST("", h.Create)
		sessions.GET("", h.List)
		sessions.GET("/:id", h.Get)
		sessions.PUT("/:id", h.Update)
		sessions.PATCH("/:id/archive", h.Archive)
		sessions.PATCH("/:id/restore", h.Restore)
		sessions.PATCH("/:id/position", h.Reorder)
		sessions.DELETE("/:id", h.Delete)
	}
}

func sessionErrStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, domain.ErrSessionNameEmpty),
		errors.Is(err, domain.ErrSessionNameTooLong),
		errors.Is(err, domain.ErrSessionNoteTooLong),
		errors.Is(err, domain.ErrSessionArchived):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *SessionHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.Create(c.Request.Context(), services.CreateSessionInput{
		UserID: userID,
		Name:   req.Name,
		Note:   req.Note,
	})
	if err != nil {
		status, msg := sessionErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SessionHandler) List(c *gin.Context) {
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

func (h *SessionHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	session, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status, msg := sessionErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.Update(c.Request.Context(), services.UpdateSessionInput{
		ID:     c.Param("id"),
		UserID: userID,
		Name:   req.Name,
		Note:   req.Note,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "version conflict"})
			return
		}
		status, msg := sessionErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Archive(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	session, err := h.svc.Archive(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status, msg := sessionErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Restore(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	session, err := h.svc.Restore(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		status, msg := sessionErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Reorder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req reorderSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.svc.Reorder(c.Request.Context(), c.Param("id"), userID, req.SortOrder)
	if err != nil {
		status, msg := sessionErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		status, msg := sessionErrStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Status(http.StatusNoContent)
}
