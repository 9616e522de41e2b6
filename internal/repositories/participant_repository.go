package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"roomloop/internal/models"
)

var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantRepository abstracts membership records.
type ParticipantRepository interface {
	GetParticipant(ctx context.Context, roomID int, userID int) (models.Participant, error)
	Activate(ctx context.Context, roomID int, userID int, at time.Time) (models.Participant, error)
	EnsureParticipant(ctx context.Context, roomID int, userID int) error
	Deactivate(ctx context.Context, roomID int, userID int, at time.Time) error
	CountActive(ctx context.Context, roomID int) (int, error)
	ListActiveUserIDs(ctx context.Context, roomID int) ([]int, error)
	ListParticipants(ctx context.Context, roomID int) ([]models.Participant, error)
}

// ParticipantRepo is a sqlx implementation of ParticipantRepository.
type ParticipantRepo struct {
	db *sqlx.DB
}

// NewParticipantRepo constructs a ParticipantRepo.
func NewParticipantRepo(db *sqlx.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// GetParticipant returns the membership record for the pair.
func (r *ParticipantRepo) GetParticipant(ctx context.Context, roomID int, userID int) (models.Participant, error) {
	var p models.Participant
	err := r.db.GetContext(ctx, &p, `SELECT id, room_id, user_id, active, joined_at, left_at
        FROM room_participants WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Participant{}, ErrParticipantNotFound
	}
	return p, err
}

// Activate creates or reactivates the membership record in one statement.
func (r *ParticipantRepo) Activate(ctx context.Context, roomID int, userID int, at time.Time) (models.Participant, error) {
	var p models.Participant
	err := r.db.GetContext(ctx, &p, `INSERT INTO room_participants (room_id, user_id, active, joined_at, left_at)
        VALUES ($1, $2, TRUE, $3, NULL)
        ON CONFLICT (room_id, user_id) DO UPDATE SET active = TRUE, joined_at = EXCLUDED.joined_at, left_at = NULL
        RETURNING id, room_id, user_id, active, joined_at, left_at`, roomID, userID, at)
	return p, err
}

// EnsureParticipant creates an inactive record when none exists.
func (r *ParticipantRepo) EnsureParticipant(ctx context.Context, roomID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO room_participants (room_id, user_id, active)
        VALUES ($1, $2, FALSE)
        ON CONFLICT (room_id, user_id) DO NOTHING`, roomID, userID)
	return err
}

// Deactivate marks an active record as left.
func (r *ParticipantRepo) Deactivate(ctx context.Context, roomID int, userID int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE room_participants SET active = FALSE, left_at = $3
        WHERE room_id=$1 AND user_id=$2 AND active = TRUE`, roomID, userID, at)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// CountActive counts active participants.
func (r *ParticipantRepo) CountActive(ctx context.Context, roomID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM room_participants WHERE room_id=$1 AND active = TRUE`, roomID)
	return count, err
}

// ListActiveUserIDs returns the ids of active participants in join order.
func (r *ParticipantRepo) ListActiveUserIDs(ctx context.Context, roomID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM room_participants
        WHERE room_id=$1 AND active = TRUE ORDER BY joined_at ASC, id ASC`, roomID)
	return ids, err
}

// ListParticipants returns every membership record of the room.
func (r *ParticipantRepo) ListParticipants(ctx context.Context, roomID int) ([]models.Participant, error) {
	var list []models.Participant
	err := r.db.SelectContext(ctx, &list, `SELECT id, room_id, user_id, active, joined_at, left_at
        FROM room_participants WHERE room_id=$1 ORDER BY id ASC`, roomID)
	return list, err
}
