package services

import (
	"context"
	"errors"
	"fmt"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
)

// InvitationService manages invitations and their effect on membership.
type InvitationService struct {
	rooms         *RoomService
	participants  repositories.ParticipantRepository
	invitations   repositories.InvitationRepository
	notifications *NotificationService
}

// NewInvitationService constructs an InvitationService.
func NewInvitationService(
	rooms *RoomService,
	participants repositories.ParticipantRepository,
	invitations repositories.InvitationRepository,
	notifications *NotificationService,
) *InvitationService {
	return &InvitationService{
		rooms:         rooms,
		participants:  participants,
		invitations:   invitations,
		notifications: notifications,
	}
}

// Invite asks inviteeID to join the room. A resolved invitation for the same pair is
// flipped back to pending instead of duplicated; the boolean reports whether a new
// invitation was created. The invitee gets an inactive membership record if none
// exists and is always notified.
func (s *InvitationService) Invite(ctx context.Context, roomID int, inviter models.Actor, inviteeID int) (models.Invitation, bool, error) {
	room, err := s.rooms.load(ctx, roomID)
	if err != nil {
		return models.Invitation{}, false, err
	}
	if !room.IsCreator(inviter.ID) {
		return models.Invitation{}, false, ErrForbidden.WithMessage("Only room creator can send invitations")
	}
	if inviteeID <= 0 {
		return models.Invitation{}, false, ErrValidation.WithMessage("Invitee is required")
	}
	if inviteeID == inviter.ID {
		return models.Invitation{}, false, ErrSelfInvite
	}

	p, err := s.participants.GetParticipant(ctx, roomID, inviteeID)
	if err == nil && p.Active {
		return models.Invitation{}, false, ErrAlreadyActive
	}
	if err != nil && !errors.Is(err, repositories.ErrParticipantNotFound) {
		return models.Invitation{}, false, err
	}

	inv, created, err := s.invitations.UpsertPending(ctx, roomID, inviter.ID, inviteeID)
	if errors.Is(err, repositories.ErrInvitationPending) {
		return models.Invitation{}, false, ErrDuplicatePending
	}
	if err != nil {
		return models.Invitation{}, false, err
	}

	if err := s.participants.EnsureParticipant(ctx, roomID, inviteeID); err != nil {
		return models.Invitation{}, false, fmt.Errorf("ensure participant: %w", err)
	}

	content := fmt.Sprintf("You've been invited to join %q by %s", room.Title, inviter.DisplayName())
	if !created {
		content = fmt.Sprintf("You've been invited again to join %q by %s", room.Title, inviter.DisplayName())
	}
	s.notifications.notify(ctx, inviteeID, models.NotificationInvitation, content, models.InvitationRef{InvitationID: inv.ID})
	return inv, created, nil
}

// Respond records the invitee's answer. Accepting activates the membership record and
// notifies the inviter.
func (s *InvitationService) Respond(ctx context.Context, invitationID int, caller models.Actor, status models.InvitationStatus) (models.Invitation, error) {
	if status != models.InvitationAccepted && status != models.InvitationDeclined {
		return models.Invitation{}, ErrValidation.WithMessage("Invalid status")
	}

	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if errors.Is(err, repositories.ErrInvitationNotFound) {
		return models.Invitation{}, ErrInvitationNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.InviteeID != caller.ID {
		return models.Invitation{}, ErrForbidden.WithMessage("Not authorized to respond to this invitation")
	}
	if inv.Status != models.InvitationPending {
		return models.Invitation{}, ErrAlreadyResponded.WithMessage("Invitation already %s", inv.Status)
	}

	updated, err := s.invitations.Respond(ctx, invitationID, status)
	switch {
	case errors.Is(err, repositories.ErrInvitationNotPending):
		return models.Invitation{}, ErrAlreadyResponded
	case errors.Is(err, repositories.ErrInvitationNotFound):
		return models.Invitation{}, ErrInvitationNotFound
	case err != nil:
		return models.Invitation{}, err
	}

	if status == models.InvitationAccepted {
		if _, err := s.participants.Activate(ctx, updated.RoomID, caller.ID, s.rooms.Now()); err != nil {
			return models.Invitation{}, fmt.Errorf("activate participant: %w", err)
		}
		content := fmt.Sprintf("%s accepted your invitation", caller.DisplayName())
		s.notifications.notify(ctx, updated.InviterID, models.NotificationInvitation, content, models.RoomRef{RoomID: updated.RoomID})
	}
	return updated, nil
}

// ListReceived returns invitations addressed to the user.
func (s *InvitationService) ListReceived(ctx context.Context, userID int) ([]models.InvitationView, error) {
	return s.invitations.ListReceived(ctx, userID)
}

// ListSent returns invitations the user sent.
func (s *InvitationService) ListSent(ctx context.Context, userID int) ([]models.InvitationView, error) {
	return s.invitations.ListSent(ctx, userID)
}

// ListForRoom returns a room's invitations to its creator.
func (s *InvitationService) ListForRoom(ctx context.Context, roomID int, callerID int) ([]models.Invitation, error) {
	if _, err := s.rooms.owned(ctx, roomID, callerID, "Only room creator can view invitations"); err != nil {
		return nil, err
	}
	return s.invitations.ListByRoom(ctx, roomID)
}

// Delete withdraws an invitation. Only its inviter may do so.
func (s *InvitationService) Delete(ctx context.Context, invitationID int, callerID int) error {
	inv, err := s.invitations.GetInvitation(ctx, invitationID)
	if errors.Is(err, repositories.ErrInvitationNotFound) {
		return ErrInvitationNotFound
	}
	if err != nil {
		return err
	}
	if inv.InviterID != callerID {
		return ErrForbidden.WithMessage("Not authorized to delete this invitation")
	}
	err = s.invitations.DeleteInvitation(ctx, invitationID)
	if errors.Is(err, repositories.ErrInvitationNotFound) {
		return ErrInvitationNotFound
	}
	return err
}
