package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"llm-chat/internal/service"
)

// ShareHandler expone /api/v1/share. Las lecturas por clave son públicas.
type ShareHandler struct {
	logger *zap.Logger
	shares *service.ShareService
}

func NewShareHandler(logger *zap.Logger, shares *service.ShareService) *ShareHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareHandler{logger: logger, shares: shares}
}

type shareRequest struct {
	ThreadID  int64 `json:"thread_id" binding:"required"`
	MessageID int64 `json:"message_id" binding:"required"`
}

// Create maneja POST /share.
func (h *ShareHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid share request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	share, err := h.shares.Share(c.Request.Context(), req.ThreadID, req.MessageID, userID)
	if err != nil {
		respondError(c, h.logger, "share thread", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shared_thread": share})
}

// Delete maneja DELETE /share.
func (h *ShareHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.shares.Unshare(c.Request.Context(), req.ThreadID, req.MessageID, userID); err != nil {
		respondError(c, h.logger, "unshare thread", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List maneja GET /share.
func (h *ShareHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	shares, err := h.shares.ListShared(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "list shares", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shared_threads": shares})
}

// Get maneja GET /share/:key.
func (h *ShareHandler) Get(c *gin.Context) {
	key, ok := shareKey(c)
	if !ok {
		return
	}
	share, err := h.shares.GetShared(c.Request.Context(), key)
	if err != nil {
		respondError(c, h.logger, "get share", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shared_thread": share})
}

// Messages maneja GET /share/:key/messages.
func (h *ShareHandler) Messages(c *gin.Context) {
	key, ok := shareKey(c)
	if !ok {
		return
	}
	msgs, err := h.shares.SharedMessages(c.Request.Context(), key, pageQuery(c))
	if err != nil {
		respondError(c, h.logger, "list shared messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func shareKey(c *gin.Context) (uuid.UUID, bool) {
	key, err := uuid.Parse(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shared thread not found"})
		return uuid.Nil, false
	}
	return key, true
}
