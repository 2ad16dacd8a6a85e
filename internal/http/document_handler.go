package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"llm-chat/internal/domain"
	"llm-chat/internal/service"
)

type DocumentHandler struct {
	logger *zap.Logger
	docs   *service.DocumentService
}

func NewDocumentHandler(logger *zap.Logger, docs *service.DocumentService) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{logger: logger, docs: docs}
}

// Create maneja POST /document.
func (h *DocumentHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		Content       string `json:"content" binding:"required"`
		SecurityLevel string `json:"security_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid document request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	level := domain.SecurityLow
	if req.SecurityLevel != "" {
		parsed, valid := domain.ParseSecurityLevel(req.SecurityLevel)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "security_level must be LOW, MID or HIGH"})
			return
		}
		level = parsed
	}
	docs, err := h.docs.Create(c.Request.Context(), userID, req.Content, level)
	if err != nil {
		respondError(c, h.logger, "create document", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"documents": docs})
}
