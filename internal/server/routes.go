// Package server wires HTTP handlers into a gin engine for the relay via
// routing helpers.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the HTTP engine with the WebSocket endpoints, health
// check and test page.
func SetupRoutes(hub *Hub, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = hub.logger
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(requestLogger(logger), gin.Recovery())

	ws := newWSEndpoint(hub, logger)

	router.GET("/", ws.RootHandler)
	router.GET("/ws", ws.WebSocketHandler)
	router.GET("/health", HealthHandler(hub))
	router.GET("/test", TestPageHandler)
	router.NoMethod(MethodNotAllowedHandler)

	return router
}

// requestLogger logs each HTTP request at debug level once it completes.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"peer", c.ClientIP(),
		)
	}
}
