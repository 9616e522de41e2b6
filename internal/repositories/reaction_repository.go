package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"roomloop/internal/models"
)

// ReactionRepository abstracts the room-level reaction stream.
type ReactionRepository interface {
	CreateReaction(ctx context.Context, roomID int, userID int, emoji string) (models.RoomReaction, error)
	ListReactions(ctx context.Context, roomID int, limit int, before time.Time) ([]models.RoomReaction, error)
	ListReactionsAfter(ctx context.Context, roomID int, after time.Time) ([]models.RoomReaction, error)
	RoomSummary(ctx context.Context, roomID int) ([]models.EmojiCount, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// CreateReaction appends a reaction to the room stream.
func (r *ReactionRepo) CreateReaction(ctx context.Context, roomID int, userID int, emoji string) (models.RoomReaction, error) {
	var reaction models.RoomReaction
	err := r.db.GetContext(ctx, &reaction, `INSERT INTO room_reactions (room_id, user_id, emoji) VALUES ($1, $2, $3)
        RETURNING id, room_id, user_id, emoji, created_at`, roomID, userID, emoji)
	return reaction, err
}

// ListReactions returns up to limit reactions created before the cutoff, newest first.
func (r *ReactionRepo) ListReactions(ctx context.Context, roomID int, limit int, before time.Time) ([]models.RoomReaction, error) {
	var list []models.RoomReaction
	err := r.db.SelectContext(ctx, &list, `SELECT id, room_id, user_id, emoji, created_at FROM room_reactions
        WHERE room_id=$1 AND created_at < $2 ORDER BY created_at DESC, id DESC LIMIT $3`, roomID, before, limit)
	return list, err
}

// ListReactionsAfter returns reactions created strictly after the timestamp, oldest first.
func (r *ReactionRepo) ListReactionsAfter(ctx context.Context, roomID int, after time.Time) ([]models.RoomReaction, error) {
	var list []models.RoomReaction
	err := r.db.SelectContext(ctx, &list, `SELECT id, room_id, user_id, emoji, created_at FROM room_reactions
        WHERE room_id=$1 AND created_at > $2 ORDER BY created_at ASC, id ASC`, roomID, after)
	return list, err
}

// RoomSummary counts room reactions per emoji, most used first.
func (r *ReactionRepo) RoomSummary(ctx context.Context, roomID int) ([]models.EmojiCount, error) {
	var counts []models.EmojiCount
	err := r.db.SelectContext(ctx, &counts, `SELECT emoji, COUNT(*) AS count FROM room_reactions
        WHERE room_id=$1 GROUP BY emoji ORDER BY count DESC, emoji ASC`, roomID)
	return counts, err
}
