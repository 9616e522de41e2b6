package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"roomloop/internal/models"
	"roomloop/internal/observability"
	"roomloop/internal/repositories"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

// NotificationPage is one page of a user's notifications plus the unread total.
type NotificationPage struct {
	Notifications []models.NotificationView `json:"notifications"`
	UnreadCount   int                       `json:"unread_count"`
}

// NotificationService is the durable per-user notification ledger.
type NotificationService struct {
	notifications repositories.NotificationRepository
	rooms         repositories.RoomRepository
	invitations   repositories.InvitationRepository
	messages      repositories.MessageRepository
	broadcaster   Broadcaster
}

// NewNotificationService constructs a NotificationService. The room, invitation and
// message repositories are used to resolve notification references.
func NewNotificationService(
	notifications repositories.NotificationRepository,
	rooms repositories.RoomRepository,
	invitations repositories.InvitationRepository,
	messages repositories.MessageRepository,
	broadcaster Broadcaster,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		rooms:         rooms,
		invitations:   invitations,
		messages:      messages,
		broadcaster:   orNoop(broadcaster),
	}
}

// Create persists a notification and then pushes it to the user channel.
// A failed push never undoes the write.
func (s *NotificationService) Create(ctx context.Context, userID int, typ models.NotificationType, content string, ref models.Reference) (models.Notification, error) {
	kind, id := models.ReferenceColumns(ref)
	n, err := s.notifications.CreateNotification(ctx, models.Notification{
		UserID:        userID,
		Type:          typ,
		Content:       content,
		ReferenceKind: kind,
		ReferenceID:   id,
	})
	if err != nil {
		return models.Notification{}, err
	}
	observability.IncNotification(string(typ))

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		log.Printf("notifications: unread count for user %d: %v", userID, err)
	}
	s.broadcaster.ToUser(ctx, userID, models.Event{
		Type: models.EventNewNotification,
		Data: models.NewNotification{Notification: n, UnreadCount: unread},
	})
	return n, nil
}

// notify is Create for side effects of another operation: failures are logged only.
func (s *NotificationService) notify(ctx context.Context, userID int, typ models.NotificationType, content string, ref models.Reference) {
	if _, err := s.Create(ctx, userID, typ, content, ref); err != nil {
		log.Printf("notifications: create %s for user %d: %v", typ, userID, err)
	}
}

// List returns a page of notifications with references resolved and the unread count.
func (s *NotificationService) List(ctx context.Context, userID int, filter models.NotificationFilter) (NotificationPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultNotificationLimit
	}
	if filter.Limit > maxNotificationLimit {
		filter.Limit = maxNotificationLimit
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}

	list, err := s.notifications.ListNotifications(ctx, userID, filter)
	if err != nil {
		return NotificationPage{}, err
	}
	views := make([]models.NotificationView, 0, len(list))
	for _, n := range list {
		views = append(views, s.resolve(ctx, n))
	}

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return NotificationPage{}, err
	}
	return NotificationPage{Notifications: views, UnreadCount: unread}, nil
}

// UnreadCount counts the user's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID int) (int, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// resolve attaches the referenced entity, or marks it missing when it was deleted.
func (s *NotificationService) resolve(ctx context.Context, n models.Notification) models.NotificationView {
	view := models.NotificationView{Notification: n}
	ref := n.Reference()
	if ref == nil {
		return view
	}

	target, err := s.lookup(ctx, ref)
	exists := err == nil
	if err != nil && !isMissing(err) {
		log.Printf("notifications: resolve %s %d: %v", ref.Kind(), ref.TargetID(), err)
		return view
	}
	view.Target = target
	view.ReferenceExists = &exists
	return view
}

func (s *NotificationService) lookup(ctx context.Context, ref models.Reference) (any, error) {
	switch r := ref.(type) {
	case models.RoomRef:
		room, err := s.rooms.GetRoom(ctx, r.RoomID)
		if err != nil {
			return nil, err
		}
		return models.RoomSummary{
			ID:          room.ID,
			Title:       room.Title,
			Description: room.Description,
			StartTime:   room.StartTime,
			EndTime:     room.EndTime,
			Status:      room.Status,
		}, nil
	case models.InvitationRef:
		inv, err := s.invitations.GetInvitation(ctx, r.InvitationID)
		if err != nil {
			return nil, err
		}
		return models.InvitationSummary{ID: inv.ID, Status: inv.Status, RoomID: inv.RoomID}, nil
	case models.MessageRef:
		msg, err := s.messages.GetMessage(ctx, r.MessageID)
		if err != nil {
			return nil, err
		}
		return models.MessageSummary{ID: msg.ID, RoomID: msg.RoomID, Content: msg.Content}, nil
	default:
		return nil, fmt.Errorf("unknown reference kind %q", ref.Kind())
	}
}

func isMissing(err error) bool {
	return errors.Is(err, repositories.ErrRoomNotFound) ||
		errors.Is(err, repositories.ErrInvitationNotFound) ||
		errors.Is(err, repositories.ErrMessageNotFound)
}

// MarkRead flags one notification as read. Repeating it succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID int, callerID int) (models.Notification, error) {
	n, err := s.owned(ctx, notificationID, callerID)
	if err != nil {
		return models.Notification{}, err
	}
	if n.Read {
		return n, nil
	}

	n, err = s.notifications.MarkRead(ctx, notificationID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return models.Notification{}, ErrNotificationNotFound
	}
	if err != nil {
		return models.Notification{}, err
	}
	s.broadcaster.ToUser(ctx, callerID, models.Event{
		Type: models.EventNotificationRead,
		Data: models.NotificationRead{NotificationID: n.ID, Count: 1},
	})
	return n, nil
}

// MarkAllRead flips every unread notification in one statement and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, callerID int) (int, error) {
	count, err := s.notifications.MarkAllRead(ctx, callerID)
	if err != nil {
		return 0, err
	}
	s.broadcaster.ToUser(ctx, callerID, models.Event{
		Type: models.EventNotificationRead,
		Data: models.NotificationRead{All: true, Count: count},
	})
	return count, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, notificationID int, callerID int) error {
	if _, err := s.owned(ctx, notificationID, callerID); err != nil {
		return err
	}
	err := s.notifications.DeleteNotification(ctx, notificationID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) owned(ctx context.Context, notificationID int, callerID int) (models.Notification, error) {
	n, err := s.notifications.GetNotification(ctx, notificationID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return models.Notification{}, ErrNotificationNotFound
	}
	if err != nil {
		return models.Notification{}, err
	}
	if n.UserID != callerID {
		return models.Notification{}, ErrForbidden
	}
	return n, nil
}
