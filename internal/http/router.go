package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"llm-chat/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, serviceName string, jwtSvc *service.JWTService, h Handlers) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: trazas, logging, recovery y JSON content-type.
	// Las rutas SSE sobrescriben el Content-Type.
	r.Use(otelgin.Middleware(serviceName), zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/health", Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := JWTAuthMiddleware(logger, jwtSvc)
	v1 := r.Group("/api/v1")

	if chatH := h.Chat; chatH != nil {
		chat := v1.Group("/chat", auth)
		chat.GET("/thread", chatH.ListThreads)
		chat.POST("/thread", chatH.CreateThread)
		chat.GET("/thread/deleted", chatH.ListDeletedThreads)
		chat.GET("/thread/search", chatH.SearchThreads)
		chat.DELETE("/thread/soft-delete-all", chatH.SoftDeleteAll)
		chat.PUT("/thread/:id/auto-rename", chatH.AutoRename)
		chat.PUT("/thread/:id/manual-rename", chatH.ManualRename)
		chat.DELETE("/thread/:id/soft-delete", chatH.SoftDelete)
		chat.POST("/thread/:id/restore", chatH.Restore)
		chat.DELETE("/thread/:id/hard-delete", chatH.HardDelete)
		chat.GET("/thread/:id/message", chatH.ListMessages)
		chat.POST("/thread/:id/send-message", chatH.SendMessage)
		chat.PUT("/thread/:id/message/:mid/edit", chatH.EditMessage)
		chat.PUT("/thread/:id/message/:mid/vote", chatH.VoteMessage)
	}

	if shareH := h.Share; shareH != nil {
		share := v1.Group("/share")
		share.POST("", auth, shareH.Create)
		share.DELETE("", auth, shareH.Delete)
		share.GET("", auth, shareH.List)
		share.GET("/:key", shareH.Get)
		share.GET("/:key/messages", shareH.Messages)
	}

	if docH := h.Document; docH != nil {
		v1.POST("/document", auth, docH.Create)
	}

	if prefH := h.Preference; prefH != nil {
		pref := v1.Group("/preference", auth)
		pref.GET("", prefH.Get)
		pref.POST("", prefH.Update)
	}

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		logger.Info("request", fields...)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
