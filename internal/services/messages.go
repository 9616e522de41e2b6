package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
)

const (
	maxContentLength    = 1000
	defaultMessageLimit = 100
	maxMessageLimit     = 500
	maxEmojiLength      = 32
)

// MessagesSince is the polling response for a room's chat.
type MessagesSince struct {
	Messages   []models.Message  `json:"messages"`
	RoomStatus models.RoomStatus `json:"room_status"`
}

// MessageService posts chat messages and manages their reactions.
type MessageService struct {
	membership  *MembershipService
	messages    repositories.MessageRepository
	broadcaster Broadcaster
}

// NewMessageService constructs a MessageService.
func NewMessageService(membership *MembershipService, messages repositories.MessageRepository, broadcaster Broadcaster) *MessageService {
	return &MessageService{membership: membership, messages: messages, broadcaster: orNoop(broadcaster)}
}

// Post stores a message in a live room and fans it out to the other subscribers.
func (s *MessageService) Post(ctx context.Context, roomID int, userID int, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > maxContentLength {
		return models.Message{}, ErrValidation.WithMessage("Message content is required and must be at most %d characters", maxContentLength)
	}
	if _, err := s.membership.requireActive(ctx, roomID, userID, "Messages"); err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.CreateMessage(ctx, roomID, userID, content)
	if err != nil {
		return models.Message{}, err
	}
	s.broadcaster.ToRoom(ctx, roomID, models.Event{Type: models.EventNewMessage, RoomID: roomID, Data: msg})
	return msg, nil
}

// History returns the most recent messages of a room in chronological order.
func (s *MessageService) History(ctx context.Context, roomID int, callerID int, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	if _, err := s.membership.requireReader(ctx, roomID, callerID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, roomID, limit)
}

// Since returns messages newer than after together with the current room status.
// Rooms that have not started yet have nothing to poll.
func (s *MessageService) Since(ctx context.Context, roomID int, callerID int, after time.Time) (MessagesSince, error) {
	room, err := s.membership.requireReader(ctx, roomID, callerID)
	if err != nil {
		return MessagesSince{}, err
	}
	if room.Status == models.RoomStatusScheduled {
		return MessagesSince{}, ErrNotStarted
	}
	msgs, err := s.messages.ListMessagesAfter(ctx, roomID, after)
	if err != nil {
		return MessagesSince{}, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return MessagesSince{Messages: msgs, RoomStatus: room.Status}, nil
}

// ToggleReaction applies the user's emoji to a message: the same emoji removes it and
// a different one replaces it, so a user never holds two reactions on one message.
func (s *MessageService) ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (models.Message, models.ReactionChange, error) {
	emoji, err := validEmoji(emoji)
	if err != nil {
		return models.Message{}, "", err
	}
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return models.Message{}, "", err
	}
	if _, err := s.membership.requireActive(ctx, msg.RoomID, userID, "Reactions"); err != nil {
		return models.Message{}, "", err
	}

	change, err := s.messages.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return models.Message{}, "", err
	}
	return s.afterReactionChange(ctx, messageID, userID, emoji, change)
}

// UpdateReaction changes the emoji of the caller's own reaction.
func (s *MessageService) UpdateReaction(ctx context.Context, messageID int, reactionID int, userID int, emoji string) (models.Message, error) {
	emoji, err := validEmoji(emoji)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := s.ownReaction(ctx, messageID, reactionID, userID); err != nil {
		return models.Message{}, err
	}

	_, err = s.messages.UpdateReaction(ctx, reactionID, emoji)
	if errors.Is(err, repositories.ErrReactionNotFound) {
		return models.Message{}, ErrReactionNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	msg, _, err := s.afterReactionChange(ctx, messageID, userID, emoji, models.ReactionUpdated)
	return msg, err
}

// DeleteReaction removes the caller's own reaction.
func (s *MessageService) DeleteReaction(ctx context.Context, messageID int, reactionID int, userID int) (models.Message, error) {
	reaction, err := s.ownReaction(ctx, messageID, reactionID, userID)
	if err != nil {
		return models.Message{}, err
	}

	err = s.messages.DeleteReaction(ctx, reactionID)
	if errors.Is(err, repositories.ErrReactionNotFound) {
		return models.Message{}, ErrReactionNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	msg, _, err := s.afterReactionChange(ctx, messageID, userID, reaction.Emoji, models.ReactionRemoved)
	return msg, err
}

// ReactionSummary counts a message's reactions per emoji.
func (s *MessageService) ReactionSummary(ctx context.Context, messageID int, callerID int) ([]models.EmojiCount, error) {
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership.requireReader(ctx, msg.RoomID, callerID); err != nil {
		return nil, err
	}
	counts, err := s.messages.ReactionSummary(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []models.EmojiCount{}
	}
	return counts, nil
}

func (s *MessageService) ownReaction(ctx context.Context, messageID int, reactionID int, userID int) (models.MessageReaction, error) {
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return models.MessageReaction{}, err
	}
	if _, err := s.membership.requireActive(ctx, msg.RoomID, userID, "Reactions"); err != nil {
		return models.MessageReaction{}, err
	}
	reaction, err := s.messages.GetReaction(ctx, reactionID)
	if errors.Is(err, repositories.ErrReactionNotFound) || (err == nil && (reaction.MessageID != messageID || reaction.UserID != userID)) {
		return models.MessageReaction{}, ErrReactionNotFound.WithMessage("Reaction not found or not authorized to change it")
	}
	return reaction, err
}

func (s *MessageService) afterReactionChange(ctx context.Context, messageID int, userID int, emoji string, change models.ReactionChange) (models.Message, models.ReactionChange, error) {
	msg, err := s.message(ctx, messageID)
	if err != nil {
		return models.Message{}, "", err
	}
	s.broadcaster.ToRoom(ctx, msg.RoomID, models.Event{
		Type:   models.EventMessageReaction,
		RoomID: msg.RoomID,
		Data: models.MessageReactionChange{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
			Change:    change,
			Reactions: msg.Reactions,
		},
	})
	return msg, change, nil
}

func (s *MessageService) message(ctx context.Context, messageID int) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

func validEmoji(emoji string) (string, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength {
		return "", ErrValidation.WithMessage("Emoji is required")
	}
	return emoji, nil
}
