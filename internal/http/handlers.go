package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers agrupa los handlers que monta NewRouter. Un handler nil omite sus rutas.
type Handlers struct {
	Chat       *ChatHandler
	Share      *ShareHandler
	Document   *DocumentHandler
	Preference *PreferenceHandler
}

// Health maneja GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
