package models

import "time"

// InvitationStatus is the response state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation asks a user to join a room. One row exists per (room, invitee).
type Invitation struct {
	ID        int              `db:"id" json:"id"`
	RoomID    int              `db:"room_id" json:"room_id"`
	InviterID int              `db:"inviter_id" json:"inviter_id"`
	InviteeID int              `db:"invitee_id" json:"invitee_id"`
	Status    InvitationStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// InvitationView is an invitation joined with the room fields shown in listings.
type InvitationView struct {
	Invitation
	RoomTitle     string     `db:"room_title" json:"room_title"`
	RoomStartTime time.Time  `db:"room_start_time" json:"room_start_time"`
	RoomEndTime   time.Time  `db:"room_end_time" json:"room_end_time"`
	RoomStatus    RoomStatus `db:"room_status" json:"room_status"`
	RoomTag       string     `db:"room_tag" json:"room_tag"`
}
