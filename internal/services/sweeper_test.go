package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomloop/internal/models"
	"roomloop/internal/services"
)

func TestSweepOnceAnnouncesTransitions(t *testing.T) {
	h := newHarness()
	sweeper := services.NewSweeper(h.rooms, time.Minute)
	room := h.createRoom(t, 1, services.RoomInput{})
	h.admit(t, room, 2)

	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.clock.Advance(61 * time.Minute)
	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := h.store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusLive, stored.Status)

	events := h.bus.RoomEvents(models.EventRoomStatusChange)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusActionLive, events[0].Event.Data.(models.RoomStatusChange).Action)

	started := h.notificationsOf(t, 2)
	assert.Equal(t, models.NotificationRoomStarted, started[0].Type)
	assert.Equal(t, 0, countContaining(h.notificationsOf(t, 1), "has started"))

	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.clock.Advance(time.Hour)
	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ended := h.notificationsOf(t, 2)
	assert.Equal(t, models.NotificationRoomEnded, ended[0].Type)
	events = h.bus.RoomEvents(models.EventRoomStatusChange)
	require.Len(t, events, 2)
	assert.Equal(t, models.RoomStatusClosed, events[1].Event.Data.(models.RoomStatusChange).Status)
}

func TestSweeperRunDisabled(t *testing.T) {
	h := newHarness()
	sweeper := services.NewSweeper(h.rooms, 0)

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return immediately")
	}
}
