package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"roomloop/internal/models"
)

// Sweeper periodically heals stale room statuses so that start and end transitions
// reach subscribers without waiting for the next read.
type Sweeper struct {
	rooms    *RoomService
	interval time.Duration
}

// NewSweeper constructs a Sweeper. A non-positive interval disables Run.
func NewSweeper(rooms *RoomService, interval time.Duration) *Sweeper {
	return &Sweeper{rooms: rooms, interval: interval}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				log.Printf("sweeper: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweeper: refreshed %d rooms", n)
			}
		}
	}
}

// SweepOnce refreshes every room whose cached status is stale and returns how many
// rooms changed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	stale, err := s.rooms.rooms.ListStale(ctx, s.rooms.Now())
	if err != nil {
		return 0, fmt.Errorf("list stale rooms: %w", err)
	}

	changed := 0
	for _, room := range stale {
		previous := room.Status
		refreshed, err := s.rooms.Refresh(ctx, room)
		if err != nil {
			log.Printf("sweeper: refresh room %d: %v", room.ID, err)
			continue
		}
		if refreshed.Status == previous {
			continue
		}
		changed++
		s.announce(ctx, refreshed)
	}
	return changed, nil
}

func (s *Sweeper) announce(ctx context.Context, room models.Room) {
	var (
		action  models.StatusAction
		typ     models.NotificationType
		content string
	)
	switch room.Status {
	case models.RoomStatusLive:
		action, typ = models.StatusActionLive, models.NotificationRoomStarted
		content = fmt.Sprintf("Room %q has started.", room.Title)
	case models.RoomStatusClosed:
		action, typ = models.StatusActionClosed, models.NotificationRoomEnded
		content = fmt.Sprintf("Room %q has ended.", room.Title)
	default:
		return
	}

	s.rooms.broadcastStatus(ctx, room, action)

	recipients, err := s.rooms.participants.ListActiveUserIDs(ctx, room.ID)
	if err != nil {
		log.Printf("sweeper: list participants of room %d: %v", room.ID, err)
		return
	}
	for _, userID := range recipients {
		if room.IsCreator(userID) {
			continue
		}
		s.rooms.notifications.notify(ctx, userID, typ, content, models.RoomRef{RoomID: room.ID})
	}
}
