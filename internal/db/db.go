package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
            id SERIAL PRIMARY KEY,
            title VARCHAR(100) NOT NULL,
            description VARCHAR(500) NOT NULL DEFAULT '',
            visibility TEXT NOT NULL DEFAULT 'private' CHECK (visibility IN ('private', 'public')),
            start_time TIMESTAMPTZ NOT NULL,
            end_time TIMESTAMPTZ NOT NULL,
            max_participants INT CHECK (max_participants IS NULL OR max_participants > 0),
            tag TEXT NOT NULL DEFAULT 'other',
            status TEXT NOT NULL DEFAULT 'scheduled' CHECK (status IN ('scheduled', 'live', 'closed')),
            creator_id INT NOT NULL,
            summary TEXT NOT NULL DEFAULT '',
            is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
            recurrence_pattern TEXT,
            original_start_time TIMESTAMPTZ,
            original_end_time TIMESTAMPTZ,
            was_rescheduled BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (end_time > start_time)
        );`,
	`CREATE INDEX IF NOT EXISTS rooms_creator_idx ON rooms(creator_id);`,
	`CREATE INDEX IF NOT EXISTS rooms_schedule_idx ON rooms(status, start_time, end_time);`,
	`CREATE TABLE IF NOT EXISTS room_participants (
            id SERIAL PRIMARY KEY,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            active BOOLEAN NOT NULL DEFAULT FALSE,
            joined_at TIMESTAMPTZ,
            left_at TIMESTAMPTZ,
            UNIQUE(room_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS invitations (
            id SERIAL PRIMARY KEY,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            inviter_id INT NOT NULL,
            invitee_id INT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'declined')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(room_id, invitee_id)
        );`,
	`CREATE INDEX IF NOT EXISTS invitations_invitee_idx ON invitations(invitee_id, status);`,
	`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            content VARCHAR(1000) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS messages_room_created_idx ON messages(room_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
            id SERIAL PRIMARY KEY,
            message_id INT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(message_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS room_reactions (
            id SERIAL PRIMARY KEY,
            room_id INT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS room_reactions_room_created_idx ON room_reactions(room_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS notifications (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL,
            type TEXT NOT NULL,
            content TEXT NOT NULL,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            reference_kind TEXT,
            reference_id INT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS notifications_user_read_idx ON notifications(user_id, read, created_at DESC);`,
}

func runMigrations(db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
