package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"roomloop/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(requestIDContextKey); id != "" {
		return id
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *int64 {
	if userID := c.GetInt("userID"); userID != 0 {
		value := int64(userID)
		return &value
	}
	return nil
}

// audit records a host or membership action. A nil emitter drops it.
func audit(c *gin.Context, emitter *telemetry.AuditEmitter, action, text string, roomID int) {
	entry := telemetry.AuditEntry{
		Action:    action,
		Text:      text,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
	}
	if roomID != 0 {
		entry.RoomID = &roomID
	}
	emitter.Emit(c.Request.Context(), entry)
}
