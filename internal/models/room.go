package models

import "time"

// RoomStatus is the lifecycle state of a room. It is always derivable from the schedule.
type RoomStatus string

const (
	RoomStatusScheduled RoomStatus = "scheduled"
	RoomStatusLive      RoomStatus = "live"
	RoomStatusClosed    RoomStatus = "closed"
)

// Visibility controls who may join a room.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// RoomTags lists the accepted room tags.
var RoomTags = []string{"hangout", "work", "brainstorm", "wellness", "social", "focus", "other"}

// RecurrencePatterns lists the accepted recurrence patterns.
var RecurrencePatterns = []string{"daily", "weekly", "biweekly", "monthly"}

// Room is a time-boxed, host-owned space.
type Room struct {
	ID                int        `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	Description       string     `db:"description" json:"description"`
	Visibility        Visibility `db:"visibility" json:"type"`
	StartTime         time.Time  `db:"start_time" json:"start_time"`
	EndTime           time.Time  `db:"end_time" json:"end_time"`
	MaxParticipants   *int       `db:"max_participants" json:"max_participants"`
	Tag               string     `db:"tag" json:"tag"`
	Status            RoomStatus `db:"status" json:"status"`
	CreatorID         int        `db:"creator_id" json:"creator_id"`
	Summary           string     `db:"summary" json:"summary"`
	IsRecurring       bool       `db:"is_recurring" json:"is_recurring"`
	RecurrencePattern *string    `db:"recurrence_pattern" json:"recurrence_pattern"`
	OriginalStartTime *time.Time `db:"original_start_time" json:"original_start_time"`
	OriginalEndTime   *time.Time `db:"original_end_time" json:"original_end_time"`
	WasRescheduled    bool       `db:"was_rescheduled" json:"was_rescheduled"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ResolveStatus maps a schedule window and the current time to a status.
func ResolveStatus(start, end, now time.Time) RoomStatus {
	if now.Before(start) {
		return RoomStatusScheduled
	}
	if now.After(end) {
		return RoomStatusClosed
	}
	return RoomStatusLive
}

// ResolveStatus computes the room status at now without touching the cached value.
func (r Room) ResolveStatus(now time.Time) RoomStatus {
	return ResolveStatus(r.StartTime, r.EndTime, now)
}

// IsPrivate reports whether the room requires an invitation to join.
func (r Room) IsPrivate() bool {
	return r.Visibility == VisibilityPrivate
}

// IsCreator reports whether userID owns the room.
func (r Room) IsCreator(userID int) bool {
	return r.CreatorID == userID
}

// RoomFilter narrows public room listings.
type RoomFilter struct {
	Status RoomStatus
	Tag    string
	Now    time.Time
}

// RoomDetail is a room together with its active participants.
type RoomDetail struct {
	Room
	Participants []int `json:"participants"`
}
