package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"roomloop/internal/middleware"
	"roomloop/internal/models"
	"roomloop/internal/services"
	"roomloop/internal/telemetry"
)

// InvitationHandler serves invitation endpoints.
type InvitationHandler struct {
	invitations *services.InvitationService
	audit       *telemetry.AuditEmitter
}

// NewInvitationHandler builds an InvitationHandler. emitter may be nil.
func NewInvitationHandler(invitations *services.InvitationService, emitter *telemetry.AuditEmitter) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, audit: emitter}
}

// SendInvitation invites a user to a room. A re-invitation reuses the existing record
// and answers 200 instead of 201.
func (h *InvitationHandler) SendInvitation(c *gin.Context) {
	var req struct {
		RoomID    int `json:"room_id"`
		InviteeID int `json:"invitee_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.RoomID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	inv, created, err := h.invitations.Invite(c.Request.Context(), req.RoomID, middleware.ActorFrom(c), req.InviteeID)
	if err != nil {
		writeError(c, err, "could not send invitation")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"invitation": inv})
}

// ListReceived returns invitations addressed to the caller.
func (h *InvitationHandler) ListReceived(c *gin.Context) {
	list, err := h.invitations.ListReceived(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load invitations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": orEmpty(list)})
}

// ListSent returns invitations sent by the caller.
func (h *InvitationHandler) ListSent(c *gin.Context) {
	list, err := h.invitations.ListSent(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load invitations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": orEmpty(list)})
}

// ListForRoom returns a room's invitations to its creator.
func (h *InvitationHandler) ListForRoom(c *gin.Context) {
	roomID, ok := pathID(c, "room_id", "room")
	if !ok {
		return
	}
	list, err := h.invitations.ListForRoom(c.Request.Context(), roomID, c.GetInt("userID"))
	if err != nil {
		writeError(c, err, "failed to load invitations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": orEmpty(list)})
}

// RespondInvitation accepts or declines an invitation addressed to the caller.
func (h *InvitationHandler) RespondInvitation(c *gin.Context) {
	invitationID, ok := pathID(c, "invitation_id", "invitation")
	if !ok {
		return
	}
	var req struct {
		Status models.InvitationStatus `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.invitations.Respond(c.Request.Context(), invitationID, middleware.ActorFrom(c), req.Status)
	if err != nil {
		writeError(c, err, "could not respond to invitation")
		return
	}
	audit(c, h.audit, "invitation."+string(inv.Status), fmt.Sprintf("invitation %d %s", inv.ID, inv.Status), inv.RoomID)
	c.JSON(http.StatusOK, gin.H{"invitation": inv})
}

// DeleteInvitation withdraws an invitation sent by the caller.
func (h *InvitationHandler) DeleteInvitation(c *gin.Context) {
	invitationID, ok := pathID(c, "invitation_id", "invitation")
	if !ok {
		return
	}
	if err := h.invitations.Delete(c.Request.Context(), invitationID, c.GetInt("userID")); err != nil {
		writeError(c, err, "could not delete invitation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
