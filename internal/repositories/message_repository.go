package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"roomloop/internal/models"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrReactionNotFound = errors.New("reaction not found")
)

// MessageRepository abstracts message and message reaction persistence.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID int, userID int, content string) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	ListMessages(ctx context.Context, roomID int, limit int) ([]models.Message, error)
	ListMessagesAfter(ctx context.Context, roomID int, after time.Time) ([]models.Message, error)
	ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (models.ReactionChange, error)
	GetReaction(ctx context.Context, reactionID int) (models.MessageReaction, error)
	UpdateReaction(ctx context.Context, reactionID int, emoji string) (models.MessageReaction, error)
	DeleteReaction(ctx context.Context, reactionID int) error
	ReactionSummary(ctx context.Context, messageID int) ([]models.EmojiCount, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID int, userID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (room_id, user_id, content) VALUES ($1, $2, $3)
        RETURNING id, room_id, user_id, content, created_at`, roomID, userID, content).
		Scan(&msg.ID, &msg.RoomID, &msg.UserID, &msg.Content, &msg.CreatedAt)
	msg.Reactions = []models.MessageReaction{}
	return msg, err
}

// GetMessage fetches a message with its reactions.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, room_id, user_id, content, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	msgs := []models.Message{msg}
	if err := r.attachReactions(ctx, msgs); err != nil {
		return models.Message{}, err
	}
	return msgs[0], nil
}

// ListMessages returns up to limit of the most recent messages in chronological order.
func (r *MessageRepo) ListMessages(ctx context.Context, roomID int, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, room_id, user_id, content, created_at FROM (
            SELECT id, room_id, user_id, content, created_at FROM messages
            WHERE room_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
        ) recent ORDER BY created_at ASC, id ASC`, roomID, limit)
	if err != nil {
		return nil, err
	}
	return msgs, r.attachReactions(ctx, msgs)
}

// ListMessagesAfter returns messages created strictly after the timestamp.
func (r *MessageRepo) ListMessagesAfter(ctx context.Context, roomID int, after time.Time) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, room_id, user_id, content, created_at FROM messages
        WHERE room_id=$1 AND created_at > $2 ORDER BY created_at ASC, id ASC`, roomID, after)
	if err != nil {
		return nil, err
	}
	return msgs, r.attachReactions(ctx, msgs)
}

func (r *MessageRepo) attachReactions(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	ids := make([]int, 0, len(msgs))
	index := make(map[int]int, len(msgs))
	for i := range msgs {
		ids = append(ids, msgs[i].ID)
		index[msgs[i].ID] = i
		msgs[i].Reactions = []models.MessageReaction{}
	}

	query, args, err := sqlx.In(`SELECT id, message_id, user_id, emoji, created_at FROM message_reactions
        WHERE message_id IN (?) ORDER BY created_at ASC, id ASC`, ids)
	if err != nil {
		return err
	}
	var reactions []models.MessageReaction
	if err := r.db.SelectContext(ctx, &reactions, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, reaction := range reactions {
		i := index[reaction.MessageID]
		msgs[i].Reactions = append(msgs[i].Reactions, reaction)
	}
	return nil
}

// ToggleReaction applies one user's emoji to a message. The same emoji removes the
// reaction, a different emoji replaces it, and no prior reaction adds one.
func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID int, userID int, emoji string) (models.ReactionChange, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`, messageID, userID, emoji)
	if err != nil {
		return "", err
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		return models.ReactionRemoved, nil
	}

	var inserted bool
	err = r.db.GetContext(ctx, &inserted, `INSERT INTO message_reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, created_at = NOW()
        RETURNING (xmax = 0)`, messageID, userID, emoji)
	if err != nil {
		return "", err
	}
	if inserted {
		return models.ReactionAdded, nil
	}
	return models.ReactionUpdated, nil
}

// GetReaction fetches a message reaction by id.
func (r *MessageRepo) GetReaction(ctx context.Context, reactionID int) (models.MessageReaction, error) {
	var reaction models.MessageReaction
	err := r.db.GetContext(ctx, &reaction, `SELECT id, message_id, user_id, emoji, created_at FROM message_reactions WHERE id=$1`, reactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageReaction{}, ErrReactionNotFound
	}
	return reaction, err
}

// UpdateReaction changes the emoji of an existing reaction.
func (r *MessageRepo) UpdateReaction(ctx context.Context, reactionID int, emoji string) (models.MessageReaction, error) {
	var reaction models.MessageReaction
	err := r.db.GetContext(ctx, &reaction, `UPDATE message_reactions SET emoji=$2 WHERE id=$1
        RETURNING id, message_id, user_id, emoji, created_at`, reactionID, emoji)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MessageReaction{}, ErrReactionNotFound
	}
	return reaction, err
}

// DeleteReaction removes a message reaction.
func (r *MessageRepo) DeleteReaction(ctx context.Context, reactionID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE id=$1`, reactionID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrReactionNotFound
	}
	return nil
}

// ReactionSummary counts reactions on a message per emoji, most used first.
func (r *MessageRepo) ReactionSummary(ctx context.Context, messageID int) ([]models.EmojiCount, error) {
	var counts []models.EmojiCount
	err := r.db.SelectContext(ctx, &counts, `SELECT emoji, COUNT(*) AS count FROM message_reactions
        WHERE message_id=$1 GROUP BY emoji ORDER BY count DESC, emoji ASC`, messageID)
	return counts, err
}
