package models

import "time"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationInvitation  NotificationType = "invitation"
	NotificationRoomStarted NotificationType = "room_started"
	NotificationRoomEnded   NotificationType = "room_ended"
	NotificationMessage     NotificationType = "message"
	NotificationSystem      NotificationType = "system"
	NotificationRoomUpdate  NotificationType = "room_update"
)

// ReferenceKind names the entity a notification points at.
type ReferenceKind string

const (
	ReferenceRoom       ReferenceKind = "room"
	ReferenceInvitation ReferenceKind = "invitation"
	ReferenceMessage    ReferenceKind = "message"
)

// Reference is the optional target of a notification. A nil Reference means none.
type Reference interface {
	Kind() ReferenceKind
	TargetID() int
	isReference()
}

// RoomRef points at a room.
type RoomRef struct{ RoomID int }

// InvitationRef points at an invitation.
type InvitationRef struct{ InvitationID int }

// MessageRef points at a message.
type MessageRef struct{ MessageID int }

func (RoomRef) Kind() ReferenceKind { return ReferenceRoom }
func (r RoomRef) TargetID() int { return r.RoomID }
func (RoomRef) isReference() {}
func (InvitationRef) Kind() ReferenceKind { return ReferenceInvitation }
func (r InvitationRef) TargetID() int { return r.InvitationID }
func (InvitationRef) isReference() {}
func (MessageRef) Kind() ReferenceKind { return ReferenceMessage }
func (r MessageRef) TargetID() int { return r.MessageID }
func (MessageRef) isReference() {}

// NewReference rebuilds a Reference from its stored columns.
func NewReference(kind *string, id *int) Reference {
	if kind == nil || id == nil {
		return nil
	}
	switch ReferenceKind(*kind) {
	case ReferenceRoom:
		return RoomRef{RoomID: *id}
	case ReferenceInvitation:
		return InvitationRef{InvitationID: *id}
	case ReferenceMessage:
		return MessageRef{MessageID: *id}
	default:
		return nil
	}
}

// ReferenceColumns splits a Reference into its stored columns.
func ReferenceColumns(ref Reference) (*string, *int) {
	if ref == nil {
		return nil, nil
	}
	kind := string(ref.Kind())
	id := ref.TargetID()
	return &kind, &id
}

// Notification is a durable per-user record.
type Notification struct {
	ID            int              `db:"id" json:"id"`
	UserID        int              `db:"user_id" json:"user_id"`
	Type          NotificationType `db:"type" json:"type"`
	Content       string           `db:"content" json:"content"`
	Read          bool             `db:"read" json:"read"`
	ReferenceKind *string          `db:"reference_kind" json:"reference_kind,omitempty"`
	ReferenceID   *int             `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// Reference returns the typed target of the notification.
func (n Notification) Reference() Reference {
	return NewReference(n.ReferenceKind, n.ReferenceID)
}

// NotificationView is a notification with its reference resolved for display.
type NotificationView struct {
	Notification
	Target          any   `json:"reference,omitempty"`
	ReferenceExists *bool `json:"reference_exists,omitempty"`
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	Limit int
	Skip  int
	Read  *bool
}

// RoomSummary is the room projection attached to resolved references.
type RoomSummary struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Status      RoomStatus `json:"status"`
}

// InvitationSummary is the invitation projection attached to resolved references.
type InvitationSummary struct {
	ID     int              `json:"id"`
	Status InvitationStatus `json:"status"`
	RoomID int              `json:"room_id"`
}

// MessageSummary is the message projection attached to resolved references.
type MessageSummary struct {
	ID      int    `json:"id"`
	RoomID  int    `json:"room_id"`
	Content string `json:"content"`
}
