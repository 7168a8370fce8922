package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	chatH *ChatHandler,
	allowedOrigins []string,
	apiLimiter RateLimiter,
	chatLimiter RateLimiter,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y CORS con lista de orígenes.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", chatH.Health)

	api := r.Group("/api")
	api.Use(RateLimitMiddleware(apiLimiter, "too many requests, please try again later"))

	api.POST("/chat",
		RateLimitMiddleware(chatLimiter, "too many chat messages, please wait a moment"),
		chatH.Chat,
	)
	api.GET("/history/:sessionId", chatH.History)
	api.DELETE("/history/:sessionId", chatH.DeleteHistory)
	api.GET("/sessions", chatH.Sessions)
	api.POST("/export", chatH.Export)
	api.POST("/import", chatH.Import)
	api.DELETE("/clear", chatH.Clear)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
