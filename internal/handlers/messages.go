package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomloop/internal/services"
)

// MessageHandler serves room chat and message reaction endpoints.
type MessageHandler struct {
	messages *services.MessageService
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type emojiRequest struct {
	Emoji string `json:"emoji"`
}

// PostMessage stores a message in a live room and fans it out.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req struct {
		RoomID  int    `json:"room_id"`
		Content string `json:"content"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.RoomID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	msg, err := h.messages.Post(c.Request.Context(), req.RoomID, c.GetInt("userID"), req.Content)
	if err != nil {
		writeError(c, err, "could not send message")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetRoomMessages returns the latest messages of a room, oldest first.
func (h *MessageHandler) GetRoomMessages(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	msgs, err := h.messages.History(c.Request.Context(), roomID, c.GetInt("userID"), limit)
	if err != nil {
		writeError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": orEmpty(msgs)})
}

// GetMessagesAfter serves polling clients with messages newer than the timestamp.
func (h *MessageHandler) GetMessagesAfter(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	after, ok := parseTimestamp(c.Param("timestamp"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp"})
		return
	}

	page, err := h.messages.Since(c.Request.Context(), roomID, c.GetInt("userID"), after)
	if err != nil {
		writeError(c, err, "failed to load messages")
		return
	}
	page.Messages = orEmpty(page.Messages)
	c.JSON(http.StatusOK, page)
}

// ToggleReaction adds, swaps or removes the caller's reaction on a message.
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := pathID(c, "message_id", "message")
	if !ok {
		return
	}
	var req emojiRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, change, err := h.messages.ToggleReaction(c.Request.Context(), messageID, c.GetInt("userID"), req.Emoji)
	if err != nil {
		writeError(c, err, "could not update reaction")
		return
	}
	msg.Reactions = orEmpty(msg.Reactions)
	c.JSON(http.StatusOK, gin.H{"message": msg, "change": change})
}

// GetReactionSummary returns emoji counts for a message.
func (h *MessageHandler) GetReactionSummary(c *gin.Context) {
	messageID, ok := pathID(c, "message_id", "message")
	if !ok {
		return
	}
	summary, err := h.messages.ReactionSummary(c.Request.Context(), messageID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load reactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": orEmpty(summary)})
}

// UpdateReaction changes the emoji of the caller's own reaction.
func (h *MessageHandler) UpdateReaction(c *gin.Context) {
	messageID, ok := pathID(c, "message_id", "message")
	if !ok {
		return
	}
	reactionID, ok := pathID(c, "reaction_id", "reaction")
	if !ok {
		return
	}
	var req emojiRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messages.UpdateReaction(c.Request.Context(), messageID, reactionID, c.GetInt("userID"), req.Emoji)
	if err != nil {
		writeError(c, err, "could not update reaction")
		return
	}
	msg.Reactions = orEmpty(msg.Reactions)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteReaction removes the caller's own reaction.
func (h *MessageHandler) DeleteReaction(c *gin.Context) {
	messageID, ok := pathID(c, "message_id", "message")
	if !ok {
		return
	}
	reactionID, ok := pathID(c, "reaction_id", "reaction")
	if !ok {
		return
	}

	msg, err := h.messages.DeleteReaction(c.Request.Context(), messageID, reactionID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "could not delete reaction")
		return
	}
	msg.Reactions = orEmpty(msg.Reactions)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
