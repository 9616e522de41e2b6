package models

import "time"

// Participant is the membership record of a user in a room. There is at most one per pair.
type Participant struct {
	ID       int        `db:"id" json:"id"`
	RoomID   int        `db:"room_id" json:"room_id"`
	UserID   int        `db:"user_id" json:"user_id"`
	Active   bool       `db:"active" json:"active"`
	JoinedAt *time.Time `db:"joined_at" json:"joined_at"`
	LeftAt   *time.Time `db:"left_at" json:"left_at"`
}
