package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"llm-chat/internal/service"
)

type PreferenceHandler struct {
	logger *zap.Logger
	prefs  *service.PreferenceService
}

func NewPreferenceHandler(logger *zap.Logger, prefs *service.PreferenceService) *PreferenceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceHandler{logger: logger, prefs: prefs}
}

// Get maneja GET /preference.
func (h *PreferenceHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	pref, err := h.prefs.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "get preference", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preference": pref})
}

// Update maneja POST /preference.
func (h *PreferenceHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		AboutUserMessage    string `json:"about_user_message"`
		AboutModelMessage   string `json:"about_model_message"`
		AboutMessageEnabled bool   `json:"about_message_enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	pref, err := h.prefs.Update(c.Request.Context(), userID, service.PreferenceUpdate{
		AboutUserMessage:    req.AboutUserMessage,
		AboutModelMessage:   req.AboutModelMessage,
		AboutMessageEnabled: req.AboutMessageEnabled,
	})
	if err != nil {
		respondError(c, h.logger, "update preference", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preference": pref})
}
