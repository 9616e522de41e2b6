package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roomloop/internal/auth"
	"roomloop/internal/models"
)

// AuthMiddleware validates the bearer token and stores the caller on the context.
func AuthMiddleware(tokens auth.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// ActorFrom returns the authenticated caller set by AuthMiddleware.
func ActorFrom(c *gin.Context) models.Actor {
	return models.Actor{ID: c.GetInt("userID"), Username: c.GetString("username")}
}
