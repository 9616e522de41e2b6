package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"roomloop/internal/models"
)

var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationPending    = errors.New("invitation already pending")
	ErrInvitationNotPending = errors.New("invitation not pending")
)

// InvitationRepository abstracts invitation persistence.
type InvitationRepository interface {
	UpsertPending(ctx context.Context, roomID int, inviterID int, inviteeID int) (models.Invitation, bool, error)
	GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error)
	FindInvitation(ctx context.Context, roomID int, inviteeID int) (models.Invitation, error)
	Respond(ctx context.Context, invitationID int, status models.InvitationStatus) (models.Invitation, error)
	DeleteInvitation(ctx context.Context, invitationID int) error
	ListReceived(ctx context.Context, userID int) ([]models.InvitationView, error)
	ListSent(ctx context.Context, userID int) ([]models.InvitationView, error)
	ListByRoom(ctx context.Context, roomID int) ([]models.Invitation, error)
}

// InvitationRepo is a sqlx implementation of InvitationRepository.
type InvitationRepo struct {
	db *sqlx.DB
}

// NewInvitationRepo constructs an InvitationRepo.
func NewInvitationRepo(db *sqlx.DB) *InvitationRepo {
	return &InvitationRepo{db: db}
}

const invitationColumns = `id, room_id, inviter_id, invitee_id, status, created_at, updated_at`

type upsertedInvitation struct {
	models.Invitation
	Inserted bool `db:"inserted"`
}

// UpsertPending inserts a pending invitation or flips a resolved one back to pending.
// The boolean reports whether a new row was created. A row that is already pending
// is left untouched and ErrInvitationPending is returned.
func (r *InvitationRepo) UpsertPending(ctx context.Context, roomID int, inviterID int, inviteeID int) (models.Invitation, bool, error) {
	var row upsertedInvitation
	query := `INSERT INTO invitations (room_id, inviter_id, invitee_id, status)
        VALUES ($1, $2, $3, 'pending')
        ON CONFLICT (room_id, invitee_id) DO UPDATE
            SET status = 'pending', inviter_id = EXCLUDED.inviter_id, updated_at = NOW()
            WHERE invitations.status <> 'pending'
        RETURNING ` + invitationColumns + `, (xmax = 0) AS inserted`
	err := r.db.GetContext(ctx, &row, query, roomID, inviterID, inviteeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, false, ErrInvitationPending
	}
	if err != nil {
		return models.Invitation{}, false, err
	}
	return row.Invitation, row.Inserted, nil
}

// GetInvitation fetches an invitation by id.
func (r *InvitationRepo) GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error) {
	var inv models.Invitation
	err := r.db.GetContext(ctx, &inv, `SELECT `+invitationColumns+` FROM invitations WHERE id=$1`, invitationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, ErrInvitationNotFound
	}
	return inv, err
}

// FindInvitation fetches the invitation for a (room, invitee) pair.
func (r *InvitationRepo) FindInvitation(ctx context.Context, roomID int, inviteeID int) (models.Invitation, error) {
	var inv models.Invitation
	err := r.db.GetContext(ctx, &inv, `SELECT `+invitationColumns+` FROM invitations WHERE room_id=$1 AND invitee_id=$2`, roomID, inviteeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invitation{}, ErrInvitationNotFound
	}
	return inv, err
}

// Respond resolves a pending invitation. The pending check and the write are one statement.
func (r *InvitationRepo) Respond(ctx context.Context, invitationID int, status models.InvitationStatus) (models.Invitation, error) {
	var inv models.Invitation
	err := r.db.GetContext(ctx, &inv, `UPDATE invitations SET status=$2, updated_at=NOW()
        WHERE id=$1 AND status = 'pending'
        RETURNING `+invitationColumns, invitationID, status)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetInvitation(ctx, invitationID); getErr != nil {
			return models.Invitation{}, getErr
		}
		return models.Invitation{}, ErrInvitationNotPending
	}
	return inv, err
}

// DeleteInvitation removes an invitation.
func (r *InvitationRepo) DeleteInvitation(ctx context.Context, invitationID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id=$1`, invitationID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

const invitationViewQuery = `SELECT i.id, i.room_id, i.inviter_id, i.invitee_id, i.status, i.created_at, i.updated_at,
        r.title AS room_title, r.start_time AS room_start_time, r.end_time AS room_end_time,
        r.status AS room_status, r.tag AS room_tag
    FROM invitations i JOIN rooms r ON r.id = i.room_id`

// ListReceived returns invitations addressed to the user, newest first.
func (r *InvitationRepo) ListReceived(ctx context.Context, userID int) ([]models.InvitationView, error) {
	var list []models.InvitationView
	err := r.db.SelectContext(ctx, &list, invitationViewQuery+`
        WHERE i.invitee_id=$1 ORDER BY i.created_at DESC`, userID)
	return list, err
}

// ListSent returns invitations the user sent, newest first.
func (r *InvitationRepo) ListSent(ctx context.Context, userID int) ([]models.InvitationView, error) {
	var list []models.InvitationView
	err := r.db.SelectContext(ctx, &list, invitationViewQuery+`
        WHERE i.inviter_id=$1 ORDER BY i.created_at DESC`, userID)
	return list, err
}

// ListByRoom returns every invitation of a room.
func (r *InvitationRepo) ListByRoom(ctx context.Context, roomID int) ([]models.Invitation, error) {
	var list []models.Invitation
	err := r.db.SelectContext(ctx, &list, `SELECT `+invitationColumns+` FROM invitations WHERE room_id=$1 ORDER BY created_at DESC`, roomID)
	return list, err
}
