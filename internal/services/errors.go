package services

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindStateConflict
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindStateConflict:
		return "state_conflict"
	case KindCapacity:
		return "capacity"
	default:
		return "internal"
	}
}

// Error is a domain failure with a stable code and a user-facing message.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrValidation   = newError(KindValidation, "validation", "invalid input")
	ErrInvalidRange = newError(KindValidation, "invalid_range", "invalid time range")
	ErrSelfInvite   = newError(KindValidation, "self_invite", "cannot invite yourself")

	ErrRoomNotFound         = newError(KindNotFound, "room_not_found", "Room not found")
	ErrInvitationNotFound   = newError(KindNotFound, "invitation_not_found", "Invitation not found")
	ErrMessageNotFound      = newError(KindNotFound, "message_not_found", "Message not found")
	ErrReactionNotFound     = newError(KindNotFound, "reaction_not_found", "Reaction not found")
	ErrNotificationNotFound = newError(KindNotFound, "notification_not_found", "Notification not found")

	ErrForbidden            = newError(KindForbidden, "forbidden", "Not authorized")
	ErrNotAuthorized        = newError(KindForbidden, "not_authorized", "Not authorized to join this room")
	ErrNotActiveParticipant = newError(KindForbidden, "not_active_participant", "You must be an active participant")

	ErrNotLive          = newError(KindStateConflict, "not_live", "Room is not live")
	ErrNotStarted       = newError(KindStateConflict, "not_started", "Room has not started yet")
	ErrRoomClosed       = newError(KindStateConflict, "room_closed", "Cannot update a closed room")
	ErrAlreadyStarted   = newError(KindStateConflict, "already_started", "Cannot change time for a room that has already started")
	ErrNotAMember       = newError(KindStateConflict, "not_a_member", "Not currently in this room")
	ErrAlreadyActive    = newError(KindStateConflict, "already_active", "User is already an active participant in this room")
	ErrDuplicatePending = newError(KindStateConflict, "duplicate_pending", "User already has a pending invitation to this room")
	ErrAlreadyResponded = newError(KindStateConflict, "already_responded", "Invitation already responded to")
	ErrNotReschedulable = newError(KindStateConflict, "not_reschedulable", "Only recurring rooms or scheduled/live rooms can be rescheduled")

	ErrRoomFull = newError(KindCapacity, "room_full", "Room is full")
)
