package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roomloop/internal/auth"
	"roomloop/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, tokens *auth.JWTManager, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		audit(c, emitter, "debug.audit_test", "audit test", 0)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Mints a token for local testing.
	router.GET("/debug/token", func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Query("user_id"))
		if err != nil || userID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		token, err := tokens.Generate(userID, c.Query("username"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})
}
