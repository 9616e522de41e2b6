package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roomloop/internal/models"
	"roomloop/internal/services"
)

// NotificationHandler serves the caller's notification ledger.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications returns a page of notifications with the unread total.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	skip, ok := queryInt(c, "skip")
	if !ok {
		return
	}
	filter := models.NotificationFilter{Limit: limit, Skip: skip}
	if raw := c.Query("read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid read"})
			return
		}
		filter.Read = &read
	}

	page, err := h.notifications.List(c.Request.Context(), c.GetInt("userID"), filter)
	if err != nil {
		writeError(c, err, "failed to load notifications")
		return
	}
	page.Notifications = orEmpty(page.Notifications)
	c.JSON(http.StatusOK, page)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, ok := pathID(c, "notification_id", "notification")
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), notificationID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "could not update notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": n})
}

// MarkAllRead marks every unread notification of the caller and reports how many changed.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	count, err := h.notifications.MarkAllRead(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "could not update notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// DeleteNotification removes one of the caller's notifications.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	notificationID, ok := pathID(c, "notification_id", "notification")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), notificationID, c.GetInt("userID")); err != nil {
		writeError(c, err, "could not delete notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
