package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roomloop/internal/observability"
	"roomloop/internal/ws"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Origin tags the request context with the acting user and X-Conn-ID so live fan-out
// can skip the sender. It must run after AuthMiddleware.
func Origin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt("userID")
		if userID != 0 {
			connID := observability.ConnIDFromRequest(c.Request)
			c.Request = c.Request.WithContext(ws.ContextWithOrigin(c.Request.Context(), userID, connID))
		}
		c.Next()
	}
}

// CORS allows the configured origins. A single "*" allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader, "X-Conn-ID", "X-Device-ID"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
