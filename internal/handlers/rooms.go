package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roomloop/internal/models"
	"roomloop/internal/services"
	"roomloop/internal/telemetry"
)

// RoomHandler serves room lifecycle and membership endpoints.
type RoomHandler struct {
	rooms      *services.RoomService
	membership *services.MembershipService
	audit      *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler. emitter may be nil.
func NewRoomHandler(rooms *services.RoomService, membership *services.MembershipService, emitter *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{rooms: rooms, membership: membership, audit: emitter}
}

type createRoomRequest struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Type              models.Visibility `json:"type"`
	StartTime         time.Time         `json:"start_time"`
	EndTime           time.Time         `json:"end_time"`
	MaxParticipants   *int              `json:"max_participants"`
	Tag               string            `json:"tag"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurrencePattern string            `json:"recurrence_pattern"`
}

type updateRoomRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Tag             *string    `json:"tag"`
	MaxParticipants *int       `json:"max_participants"`
	Summary         *string    `json:"summary"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
}

// CreateRoom schedules a new room owned by the caller.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req) {
		return
	}

	room, err := h.rooms.Create(c.Request.Context(), c.GetInt("userID"), services.RoomInput{
		Title:             req.Title,
		Description:       req.Description,
		Visibility:        req.Type,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		MaxParticipants:   req.MaxParticipants,
		Tag:               req.Tag,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
	})
	if err != nil {
		writeError(c, err, "could not create room")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// ListMyRooms returns rooms created by the caller.
func (h *RoomHandler) ListMyRooms(c *gin.Context) {
	rooms, err := h.rooms.ListMine(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load rooms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": orEmpty(rooms)})
}

// ListParticipating returns rooms where the caller is an active participant.
func (h *RoomHandler) ListParticipating(c *gin.Context) {
	rooms, err := h.rooms.ListParticipating(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load rooms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": orEmpty(rooms)})
}

// ListPublic returns public rooms, optionally narrowed by status and tag.
func (h *RoomHandler) ListPublic(c *gin.Context) {
	status := models.RoomStatus(c.Query("status"))
	switch status {
	case "", models.RoomStatusScheduled, models.RoomStatusLive, models.RoomStatusClosed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	rooms, err := h.rooms.ListPublic(c.Request.Context(), status, c.Query("tag"))
	if err != nil {
		writeError(c, err, "failed to load rooms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": orEmpty(rooms)})
}

// GetRoom returns a room and its active participants.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	detail, err := h.rooms.Get(c.Request.Context(), roomID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load room")
		return
	}
	detail.Participants = orEmpty(detail.Participants)
	c.JSON(http.StatusOK, gin.H{"room": detail})
}

// UpdateRoom edits a room owned by the caller.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	var req updateRoomRequest
	if !bindJSON(c, &req) {
		return
	}

	room, err := h.rooms.Update(c.Request.Context(), roomID, c.GetInt("userID"), services.RoomUpdate{
		Title:           req.Title,
		Description:     req.Description,
		Tag:             req.Tag,
		MaxParticipants: req.MaxParticipants,
		Summary:         req.Summary,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		writeError(c, err, "could not update room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// DeleteRoom removes a room owned by the caller.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	if err := h.rooms.Delete(c.Request.Context(), roomID, c.GetInt("userID")); err != nil {
		writeError(c, err, "could not delete room")
		return
	}
	audit(c, h.audit, "room.delete", fmt.Sprintf("room %d deleted", roomID), roomID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// JoinRoom activates the caller's membership in a live room.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	participant, err := h.membership.Join(c.Request.Context(), roomID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "could not join room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

// LeaveRoom deactivates the caller's membership.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	if err := h.membership.Leave(c.Request.Context(), roomID, c.GetInt("userID")); err != nil {
		writeError(c, err, "could not leave room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// CloseRoom ends a live room immediately.
func (h *RoomHandler) CloseRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	room, err := h.rooms.Close(c.Request.Context(), roomID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "could not close room")
		return
	}
	audit(c, h.audit, "room.close", fmt.Sprintf("room %d closed", roomID), roomID)
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// ExtendRoom pushes back the end of a live room.
func (h *RoomHandler) ExtendRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if !bindJSON(c, &req) {
		return
	}

	room, err := h.rooms.Extend(c.Request.Context(), roomID, c.GetInt("userID"), req.Minutes)
	if err != nil {
		writeError(c, err, "could not extend room")
		return
	}
	audit(c, h.audit, "room.extend", fmt.Sprintf("room %d extended by %d minutes", roomID, req.Minutes), roomID)
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// RescheduleRoom moves a room to a new window.
func (h *RoomHandler) RescheduleRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	var req struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	}
	if !bindJSON(c, &req) {
		return
	}

	room, err := h.rooms.Reschedule(c.Request.Context(), roomID, c.GetInt("userID"), req.StartTime, req.EndTime)
	if err != nil {
		writeError(c, err, "could not reschedule room")
		return
	}
	audit(c, h.audit, "room.reschedule", fmt.Sprintf("room %d rescheduled to %s", roomID, room.StartTime.Format(time.RFC3339)), roomID)
	c.JSON(http.StatusOK, gin.H{"room": room})
}
