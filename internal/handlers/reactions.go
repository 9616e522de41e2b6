package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roomloop/internal/services"
)

// ReactionHandler serves room-level emoji reactions.
type ReactionHandler struct {
	reactions *services.ReactionService
}

// NewReactionHandler builds a ReactionHandler.
func NewReactionHandler(reactions *services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactions: reactions}
}

// PostReaction records an emoji on a live room.
func (h *ReactionHandler) PostReaction(c *gin.Context) {
	var req struct {
		RoomID int    `json:"room_id"`
		Emoji  string `json:"emoji"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.RoomID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	reaction, err := h.reactions.Post(c.Request.Context(), req.RoomID, c.GetInt("userID"), req.Emoji)
	if err != nil {
		writeError(c, err, "could not add reaction")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reaction": reaction})
}

// ListReactions returns room reactions newest first, optionally before a timestamp.
func (h *ReactionHandler) ListReactions(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		if before, ok = parseTimestamp(raw); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before"})
			return
		}
	}

	list, err := h.reactions.List(c.Request.Context(), roomID, c.GetInt("userID"), limit, before)
	if err != nil {
		writeError(c, err, "failed to load reactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": orEmpty(list)})
}

// GetReactionsAfter serves polling clients with reactions newer than the timestamp.
func (h *ReactionHandler) GetReactionsAfter(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	after, ok := parseTimestamp(c.Param("timestamp"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp"})
		return
	}

	page, err := h.reactions.Since(c.Request.Context(), roomID, c.GetInt("userID"), after)
	if err != nil {
		writeError(c, err, "failed to load reactions")
		return
	}
	page.Reactions = orEmpty(page.Reactions)
	c.JSON(http.StatusOK, page)
}

// GetReactionSummary returns emoji counts for a room.
func (h *ReactionHandler) GetReactionSummary(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	summary, err := h.reactions.Summary(c.Request.Context(), roomID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load reactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": orEmpty(summary)})
}
