package services

import (
	"context"
	"time"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
)

const (
	defaultReactionLimit = 50
	maxReactionLimit     = 200
)

// ReactionsSince is the polling response for a room's reaction stream.
type ReactionsSince struct {
	Reactions  []models.RoomReaction `json:"reactions"`
	RoomStatus models.RoomStatus     `json:"room_status"`
}

// ReactionService manages the room-level reaction stream.
type ReactionService struct {
	membership  *MembershipService
	reactions   repositories.ReactionRepository
	broadcaster Broadcaster
}

// NewReactionService constructs a ReactionService.
func NewReactionService(membership *MembershipService, reactions repositories.ReactionRepository, broadcaster Broadcaster) *ReactionService {
	return &ReactionService{membership: membership, reactions: reactions, broadcaster: orNoop(broadcaster)}
}

// Post appends an emoji to a live room's stream. Users may post any number of them.
func (s *ReactionService) Post(ctx context.Context, roomID int, userID int, emoji string) (models.RoomReaction, error) {
	emoji, err := validEmoji(emoji)
	if err != nil {
		return models.RoomReaction{}, err
	}
	if _, err := s.membership.requireActive(ctx, roomID, userID, "Reactions"); err != nil {
		return models.RoomReaction{}, err
	}

	reaction, err := s.reactions.CreateReaction(ctx, roomID, userID, emoji)
	if err != nil {
		return models.RoomReaction{}, err
	}
	s.broadcaster.ToRoom(ctx, roomID, models.Event{Type: models.EventRoomReaction, RoomID: roomID, Data: reaction})
	return reaction, nil
}

// List returns up to limit reactions older than before, newest first. A zero before
// means now.
func (s *ReactionService) List(ctx context.Context, roomID int, callerID int, limit int, before time.Time) ([]models.RoomReaction, error) {
	if limit <= 0 {
		limit = defaultReactionLimit
	}
	if limit > maxReactionLimit {
		limit = maxReactionLimit
	}
	if before.IsZero() {
		before = s.membership.rooms.Now()
	}
	if _, err := s.membership.requireReader(ctx, roomID, callerID); err != nil {
		return nil, err
	}
	list, err := s.reactions.ListReactions(ctx, roomID, limit, before)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.RoomReaction{}
	}
	return list, nil
}

// Since returns reactions newer than after. Rooms that have not started have none.
func (s *ReactionService) Since(ctx context.Context, roomID int, callerID int, after time.Time) (ReactionsSince, error) {
	room, err := s.membership.requireReader(ctx, roomID, callerID)
	if err != nil {
		return ReactionsSince{}, err
	}
	if room.Status == models.RoomStatusScheduled {
		return ReactionsSince{}, ErrNotStarted
	}
	list, err := s.reactions.ListReactionsAfter(ctx, roomID, after)
	if err != nil {
		return ReactionsSince{}, err
	}
	if list == nil {
		list = []models.RoomReaction{}
	}
	return ReactionsSince{Reactions: list, RoomStatus: room.Status}, nil
}

// Summary counts a room's reactions per emoji.
func (s *ReactionService) Summary(ctx context.Context, roomID int, callerID int) ([]models.EmojiCount, error) {
	if _, err := s.membership.requireReader(ctx, roomID, callerID); err != nil {
		return nil, err
	}
	counts, err := s.reactions.RoomSummary(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []models.EmojiCount{}
	}
	return counts, nil
}
