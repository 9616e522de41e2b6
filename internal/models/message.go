package models

import "time"

// Message is a chat message posted in a live room.
type Message struct {
	ID        int               `db:"id" json:"id"`
	RoomID    int               `db:"room_id" json:"room_id"`
	UserID    int               `db:"user_id" json:"user_id"`
	Content   string            `db:"content" json:"content"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	Reactions []MessageReaction `db:"-" json:"reactions"`
}

// MessageReaction is a single user's emoji on a message. A user holds at most one per message.
type MessageReaction struct {
	ID        int       `db:"id" json:"id"`
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionChange describes what a toggle did to a user's message reaction.
type ReactionChange string

const (
	ReactionAdded   ReactionChange = "added"
	ReactionUpdated ReactionChange = "updated"
	ReactionRemoved ReactionChange = "removed"
)

// RoomReaction is an emoji posted to a room. Users may post any number of them.
type RoomReaction struct {
	ID        int       `db:"id" json:"id"`
	RoomID    int       `db:"room_id" json:"room_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EmojiCount is one row of a reaction summary.
type EmojiCount struct {
	Emoji string `db:"emoji" json:"emoji"`
	Count int    `db:"count" json:"count"`
}
