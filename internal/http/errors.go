package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"llm-chat/internal/service"
)

// statusFor traduce los errores de servicio a códigos HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrThreadBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrPoolSaturated):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError escribe el error; los 5xx se registran y no exponen el detalle.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
		msg := "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "server busy, try again later"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	logger.Debug(op+" rejected", zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}
