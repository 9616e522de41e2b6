package models

import "time"

// EventType is the "type" field of a live frame.
type EventType string

const (
	EventNewMessage       EventType = "new_message"
	EventMessageReaction  EventType = "message_reaction"
	EventRoomReaction     EventType = "room_reaction"
	EventRoomStatusChange EventType = "room_status_change"
	EventNewNotification  EventType = "new_notification"
	EventNotificationRead EventType = "notification_read"
)

// Event is a domain event delivered to live subscribers.
type Event struct {
	Type   EventType `json:"type"`
	RoomID int       `json:"room_id,omitempty"`
	Data   any       `json:"data"`
}

// StatusAction tells clients why a room status change was broadcast.
type StatusAction string

const (
	StatusActionClosed      StatusAction = "closed"
	StatusActionRescheduled StatusAction = "rescheduled"
	StatusActionExtended    StatusAction = "extended"
	StatusActionLive        StatusAction = "live"
)

// RoomStatusChange is the payload of room_status_change.
type RoomStatusChange struct {
	RoomID    int          `json:"room_id"`
	Status    RoomStatus   `json:"status"`
	Action    StatusAction `json:"action"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
}

// MessageReactionChange is the payload of message_reaction.
type MessageReactionChange struct {
	MessageID int               `json:"message_id"`
	UserID    int               `json:"user_id"`
	Emoji     string            `json:"emoji"`
	Change    ReactionChange    `json:"change"`
	Reactions []MessageReaction `json:"reactions"`
}

// NotificationRead is the payload of notification_read.
type NotificationRead struct {
	NotificationID int  `json:"notification_id,omitempty"`
	All            bool `json:"all,omitempty"`
	Count          int  `json:"count"`
}

// NewNotification is the payload of new_notification.
type NewNotification struct {
	Notification Notification `json:"notification"`
	UnreadCount  int          `json:"unread_count"`
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID       int
	Username string
}

// DisplayName returns a printable name for the actor.
func (a Actor) DisplayName() string {
	if a.Username != "" {
		return a.Username
	}
	return "someone"
}
