package http

import (
	"io"

	"github.com/gin-gonic/gin"

	"llm-chat/internal/service"
)

// streamEvents reenvía el flujo como Server-Sent Events hasta que termina o el
// cliente se desconecta. Si el cliente se va, la generación sigue en segundo plano.
func streamEvents(c *gin.Context, stream *service.Stream) {
	defer stream.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-done:
			return false
		}
	})
}
