package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"roomloop/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomRepository abstracts room persistence.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room models.Room) (models.Room, error)
	GetRoom(ctx context.Context, roomID int) (models.Room, error)
	UpdateRoom(ctx context.Context, room models.Room) (models.Room, error)
	UpdateStatus(ctx context.Context, roomID int, status models.RoomStatus) error
	DeleteRoom(ctx context.Context, roomID int) error
	ListByCreator(ctx context.Context, userID int) ([]models.Room, error)
	ListParticipating(ctx context.Context, userID int) ([]models.Room, error)
	ListPublic(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
	ListStale(ctx context.Context, now time.Time) ([]models.Room, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

const roomColumns = `id, title, description, visibility, start_time, end_time, max_participants, tag, status,
        creator_id, summary, is_recurring, recurrence_pattern, original_start_time, original_end_time,
        was_rescheduled, created_at, updated_at`

// CreateRoom inserts a room and returns the stored row.
func (r *RoomRepo) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	var created models.Room
	query := `INSERT INTO rooms (title, description, visibility, start_time, end_time, max_participants, tag, status,
            creator_id, summary, is_recurring, recurrence_pattern)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING ` + roomColumns
	err := r.db.GetContext(ctx, &created, query,
		room.Title, room.Description, room.Visibility, room.StartTime, room.EndTime, room.MaxParticipants,
		room.Tag, room.Status, room.CreatorID, room.Summary, room.IsRecurring, room.RecurrencePattern)
	return created, err
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// UpdateRoom persists every mutable column of the room.
func (r *RoomRepo) UpdateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	var updated models.Room
	query := `UPDATE rooms SET title=$2, description=$3, visibility=$4, start_time=$5, end_time=$6,
            max_participants=$7, tag=$8, status=$9, summary=$10, is_recurring=$11, recurrence_pattern=$12,
            original_start_time=$13, original_end_time=$14, was_rescheduled=$15, updated_at=NOW()
        WHERE id=$1
        RETURNING ` + roomColumns
	err := r.db.GetContext(ctx, &updated, query,
		room.ID, room.Title, room.Description, room.Visibility, room.StartTime, room.EndTime,
		room.MaxParticipants, room.Tag, room.Status, room.Summary, room.IsRecurring, room.RecurrencePattern,
		room.OriginalStartTime, room.OriginalEndTime, room.WasRescheduled)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return updated, err
}

// UpdateStatus overwrites the cached status. Concurrent writers converge on the same value.
func (r *RoomRepo) UpdateStatus(ctx context.Context, roomID int, status models.RoomStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET status=$2, updated_at=NOW() WHERE id=$1`, roomID, status)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes a room. Dependents cascade in the schema.
func (r *RoomRepo) DeleteRoom(ctx context.Context, roomID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// ListByCreator returns rooms owned by the user, latest start first.
func (r *RoomRepo) ListByCreator(ctx context.Context, userID int) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM rooms WHERE creator_id=$1 ORDER BY start_time DESC`, userID)
	return rooms, err
}

// ListParticipating returns rooms the user holds a membership record in but did not create.
func (r *RoomRepo) ListParticipating(ctx context.Context, userID int) ([]models.Room, error) {
	var rooms []models.Room
	query := `SELECT ` + qualify("r", roomColumns) + ` FROM rooms r
        JOIN room_participants p ON p.room_id = r.id
        WHERE p.user_id=$1 AND r.creator_id <> $1
        ORDER BY r.start_time DESC`
	err := r.db.SelectContext(ctx, &rooms, query, userID)
	return rooms, err
}

// ListPublic returns public rooms that have not ended at filter.Now. The status filter
// is evaluated against the schedule rather than the cached column.
func (r *RoomRepo) ListPublic(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	args := []any{filter.Now}
	clauses := []string{"visibility = 'public'", "end_time >= $1"}
	switch filter.Status {
	case models.RoomStatusScheduled:
		clauses = append(clauses, "start_time > $1")
	case models.RoomStatusLive:
		clauses = append(clauses, "start_time <= $1")
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		clauses = append(clauses, fmt.Sprintf("tag = $%d", len(args)))
	}

	var rooms []models.Room
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY start_time ASC`
	err := r.db.SelectContext(ctx, &rooms, query, args...)
	return rooms, err
}

// ListStale returns rooms whose cached status no longer matches the schedule at now.
func (r *RoomRepo) ListStale(ctx context.Context, now time.Time) ([]models.Room, error) {
	var rooms []models.Room
	query := `SELECT ` + roomColumns + ` FROM rooms
        WHERE (status = 'scheduled' AND start_time <= $1)
           OR (status = 'live' AND (end_time < $1 OR start_time > $1))
           OR (status = 'closed' AND end_time >= $1)
        ORDER BY start_time ASC`
	err := r.db.SelectContext(ctx, &rooms, query, now)
	return rooms, err
}

func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
