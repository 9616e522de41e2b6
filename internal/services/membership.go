package services

import (
	"context"
	"errors"
	"strings"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
)

// MembershipService tracks which users are active in which rooms.
type MembershipService struct {
	rooms        *RoomService
	participants repositories.ParticipantRepository
	invitations  repositories.InvitationRepository
	broadcaster  Broadcaster
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(
	rooms *RoomService,
	participants repositories.ParticipantRepository,
	invitations repositories.InvitationRepository,
	broadcaster Broadcaster,
) *MembershipService {
	return &MembershipService{
		rooms:        rooms,
		participants: participants,
		invitations:  invitations,
		broadcaster:  orNoop(broadcaster),
	}
}

// Join activates the user in a live room. The checks run in order: the room must be
// live, a private room requires the creator or an accepted invitation, and the active
// count must be below capacity. A user who is already active re-joins without effect.
func (s *MembershipService) Join(ctx context.Context, roomID int, userID int) (models.Participant, error) {
	room, err := s.rooms.load(ctx, roomID)
	if err != nil {
		return models.Participant{}, err
	}

	switch room.Status {
	case models.RoomStatusScheduled:
		return models.Participant{}, ErrNotLive.WithMessage("This room has not started yet")
	case models.RoomStatusClosed:
		return models.Participant{}, ErrNotLive.WithMessage("This room has already ended")
	}

	if room.IsPrivate() && !room.IsCreator(userID) {
		inv, err := s.invitations.FindInvitation(ctx, roomID, userID)
		if errors.Is(err, repositories.ErrInvitationNotFound) || (err == nil && inv.Status != models.InvitationAccepted) {
			return models.Participant{}, ErrNotAuthorized
		}
		if err != nil {
			return models.Participant{}, err
		}
	}

	existing, err := s.participants.GetParticipant(ctx, roomID, userID)
	switch {
	case err == nil && existing.Active:
		return existing, nil
	case err != nil && !errors.Is(err, repositories.ErrParticipantNotFound):
		return models.Participant{}, err
	}

	if room.MaxParticipants != nil {
		active, err := s.participants.CountActive(ctx, roomID)
		if err != nil {
			return models.Participant{}, err
		}
		if active >= *room.MaxParticipants {
			return models.Participant{}, ErrRoomFull
		}
	}

	return s.participants.Activate(ctx, roomID, userID, s.rooms.Now())
}

// Leave deactivates the user's membership and detaches their live connections from the room.
func (s *MembershipService) Leave(ctx context.Context, roomID int, userID int) error {
	err := s.participants.Deactivate(ctx, roomID, userID, s.rooms.Now())
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return ErrNotAMember
	}
	if err != nil {
		return err
	}
	s.broadcaster.DetachUser(ctx, roomID, userID)
	return nil
}

// IsActive reports whether the user currently holds an active membership.
func (s *MembershipService) IsActive(ctx context.Context, roomID int, userID int) (bool, error) {
	p, err := s.participants.GetParticipant(ctx, roomID, userID)
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Active, nil
}

// requireActive loads a live room and checks that the user is active in it.
func (s *MembershipService) requireActive(ctx context.Context, roomID int, userID int, action string) (models.Room, error) {
	room, err := s.rooms.load(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if room.Status != models.RoomStatusLive {
		return models.Room{}, ErrNotLive.WithMessage("%s can only be sent to live rooms", action)
	}
	active, err := s.IsActive(ctx, roomID, userID)
	if err != nil {
		return models.Room{}, err
	}
	if !active {
		return models.Room{}, ErrNotActiveParticipant.WithMessage("You must be an active participant to send %s", strings.ToLower(action))
	}
	return room, nil
}

// requireReader loads a room and enforces read access to its history.
func (s *MembershipService) requireReader(ctx context.Context, roomID int, userID int) (models.Room, error) {
	room, err := s.rooms.load(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if err := s.rooms.checkAccess(ctx, room, userID); err != nil {
		return models.Room{}, err
	}
	return room, nil
}
