package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"roomloop/internal/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository abstracts the durable notification ledger.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error)
	GetNotification(ctx context.Context, notificationID int) (models.Notification, error)
	ListNotifications(ctx context.Context, userID int, filter models.NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int) (int, error)
	MarkRead(ctx context.Context, notificationID int) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID int) (int, error)
	DeleteNotification(ctx context.Context, notificationID int) error
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `id, user_id, type, content, read, reference_kind, reference_id, created_at`

// CreateNotification stores an unread notification.
func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	var created models.Notification
	err := r.db.GetContext(ctx, &created, `INSERT INTO notifications (user_id, type, content, reference_kind, reference_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING `+notificationColumns, n.UserID, n.Type, n.Content, n.ReferenceKind, n.ReferenceID)
	return created, err
}

// GetNotification fetches a notification by id.
func (r *NotificationRepo) GetNotification(ctx context.Context, notificationID int) (models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotificationNotFound
	}
	return n, err
}

// ListNotifications returns a page of the user's notifications, newest first.
func (r *NotificationRepo) ListNotifications(ctx context.Context, userID int, filter models.NotificationFilter) ([]models.Notification, error) {
	args := []any{userID}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id=$1`
	if filter.Read != nil {
		args = append(args, *filter.Read)
		query += fmt.Sprintf(" AND read = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Skip)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, query, args...)
	return list, err
}

// CountUnread counts unread notifications.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read = FALSE`, userID)
	return count, err
}

// MarkRead flags a notification as read. Marking it again is a no-op.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID int) (models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n, `UPDATE notifications SET read = TRUE WHERE id=$1 RETURNING `+notificationColumns, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Notification{}, ErrNotificationNotFound
	}
	return n, err
}

// MarkAllRead flips every unread notification of the user and reports how many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id=$1 AND read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	return int(rows), err
}

// DeleteNotification removes a notification.
func (r *NotificationRepo) DeleteNotification(ctx context.Context, notificationID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1`, notificationID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
