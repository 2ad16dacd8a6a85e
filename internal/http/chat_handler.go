package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/service"
)

// ChatHandler expone hilos y mensajes bajo /api/v1/chat.
type ChatHandler struct {
	logger  *zap.Logger
	threads *service.ThreadService
	chat    *service.ChatService
}

func NewChatHandler(logger *zap.Logger, threads *service.ThreadService, chat *service.ChatService) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		logger:  logger,
		threads: threads,
		chat:    chat,
	}
}

type contentRequest struct {
	Content string `json:"content"`
}

// ListThreads maneja GET /thread.
func (h *ChatHandler) ListThreads(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threads, err := h.threads.List(c.Request.Context(), userID, c.Query("query"), pageQuery(c))
	if err != nil {
		respondError(c, h.logger, "list threads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// ListDeletedThreads maneja GET /thread/deleted.
func (h *ChatHandler) ListDeletedThreads(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threads, err := h.threads.ListDeleted(c.Request.Context(), userID, c.Query("query"), pageQuery(c))
	if err != nil {
		respondError(c, h.logger, "list deleted threads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}

// CreateThread maneja POST /thread.
func (h *ChatHandler) CreateThread(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	thread, err := h.threads.Create(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "create thread", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"thread": thread})
}

// SearchThreads maneja GET /thread/search?query=.
func (h *ChatHandler) SearchThreads(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	results, err := h.threads.Search(c.Request.Context(), userID, c.Query("query"))
	if err != nil {
		respondError(c, h.logger, "search threads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// AutoRename maneja PUT /thread/:id/auto-rename (SSE).
func (h *ChatHandler) AutoRename(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	stream, err := h.chat.AutoRename(c.Request.Context(), threadID, userID)
	if err != nil {
		respondError(c, h.logger, "auto rename", err)
		return
	}
	streamEvents(c, stream)
}

// ManualRename maneja PUT /thread/:id/manual-rename.
func (h *ChatHandler) ManualRename(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req struct {
		ChatName string `json:"chat_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid rename request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	thread, err := h.threads.Rename(c.Request.Context(), threadID, userID, req.ChatName)
	if err != nil {
		respondError(c, h.logger, "rename thread", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": thread})
}

// SoftDelete maneja DELETE /thread/:id/soft-delete.
func (h *ChatHandler) SoftDelete(c *gin.Context) {
	h.threadAction(c, "soft delete thread", h.threads.SoftDelete)
}

// Restore maneja POST /thread/:id/restore.
func (h *ChatHandler) Restore(c *gin.Context) {
	h.threadAction(c, "restore thread", h.threads.Restore)
}

// HardDelete maneja DELETE /thread/:id/hard-delete.
func (h *ChatHandler) HardDelete(c *gin.Context) {
	h.threadAction(c, "hard delete thread", h.threads.HardDelete)
}

func (h *ChatHandler) threadAction(c *gin.Context, op string, action func(ctx context.Context, threadID int64, userID string) error) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := action(c.Request.Context(), threadID, userID); err != nil {
		respondError(c, h.logger, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SoftDeleteAll maneja DELETE /thread/soft-delete-all.
func (h *ChatHandler) SoftDeleteAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.threads.SoftDeleteAll(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "soft delete all threads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// ListMessages maneja GET /thread/:id/message.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	msgs, err := h.threads.Messages(c.Request.Context(), threadID, userID, pageQuery(c))
	if err != nil {
		respondError(c, h.logger, "list messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage maneja POST /thread/:id/send-message (SSE).
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	stream, err := h.chat.SendMessage(c.Request.Context(), threadID, userID, req.Content)
	if err != nil {
		respondError(c, h.logger, "send message", err)
		return
	}
	streamEvents(c, stream)
}

// EditMessage maneja PUT /thread/:id/message/:mid/edit (SSE).
func (h *ChatHandler) EditMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	messageID, ok := int64Param(c, "mid")
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid edit message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	stream, err := h.chat.EditMessage(c.Request.Context(), threadID, messageID, userID, req.Content)
	if err != nil {
		respondError(c, h.logger, "edit message", err)
		return
	}
	streamEvents(c, stream)
}

// VoteMessage maneja PUT /thread/:id/message/:mid/vote. rating vacío o "NONE" la elimina.
func (h *ChatHandler) VoteMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	threadID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	messageID, ok := int64Param(c, "mid")
	if !ok {
		return
	}
	var req struct {
		Rating string `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	rating, valid := domain.ParseRating(req.Rating)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be UP, DOWN or NONE"})
		return
	}
	msg, err := h.threads.RateMessage(c.Request.Context(), threadID, messageID, userID, rating)
	if err != nil {
		respondError(c, h.logger, "rate message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
