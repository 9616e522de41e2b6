package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roomloop/internal/mocks"
	"roomloop/internal/models"
	"roomloop/internal/services"
)

var (
	ctx = context.Background()
	t0  = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
)

type harness struct {
	clock         *mocks.Clock
	store         *mocks.Store
	bus           *mocks.Broadcaster
	notifications *services.NotificationService
	rooms         *services.RoomService
	membership    *services.MembershipService
	invitations   *services.InvitationService
	messages      *services.MessageService
	reactions     *services.ReactionService
}

func newHarness() *harness {
	clock := mocks.NewClock(t0)
	store := mocks.NewStore(clock.Now)
	bus := &mocks.Broadcaster{}

	notifications := services.NewNotificationService(store, store, store, store, bus)
	rooms := services.NewRoomService(store, store, notifications, bus, clock.Now)
	membership := services.NewMembershipService(rooms, store, store, bus)

	return &harness{
		clock:         clock,
		store:         store,
		bus:           bus,
		notifications: notifications,
		rooms:         rooms,
		membership:    membership,
		invitations:   services.NewInvitationService(rooms, store, store, notifications),
		messages:      services.NewMessageService(membership, store, bus),
		reactions:     services.NewReactionService(membership, store, bus),
	}
}

func actor(id int) models.Actor {
	return models.Actor{ID: id, Username: fmt.Sprintf("user%d", id)}
}

// createRoom stores a room starting in one hour unless in says otherwise.
func (h *harness) createRoom(t *testing.T, creatorID int, in services.RoomInput) models.Room {
	t.Helper()
	if in.Title == "" {
		in.Title = "Morning sync"
	}
	if in.StartTime.IsZero() {
		in.StartTime = h.clock.Now().Add(time.Hour)
	}
	if in.EndTime.IsZero() {
		in.EndTime = in.StartTime.Add(time.Hour)
	}
	room, err := h.rooms.Create(ctx, creatorID, in)
	require.NoError(t, err)
	return room
}

// liveRoom creates a room and moves the clock one minute past its start.
func (h *harness) liveRoom(t *testing.T, creatorID int, in services.RoomInput) models.Room {
	t.Helper()
	room := h.createRoom(t, creatorID, in)
	h.clock.Advance(room.StartTime.Sub(h.clock.Now()) + time.Minute)
	return room
}

func (h *harness) publicLiveRoom(t *testing.T, creatorID int, members ...int) models.Room {
	t.Helper()
	room := h.liveRoom(t, creatorID, services.RoomInput{Visibility: models.VisibilityPublic})
	for _, userID := range members {
		_, err := h.membership.Join(ctx, room.ID, userID)
		require.NoError(t, err)
	}
	return room
}

// admit invites userID and accepts on their behalf.
func (h *harness) admit(t *testing.T, room models.Room, userID int) models.Invitation {
	t.Helper()
	inv, _, err := h.invitations.Invite(ctx, room.ID, actor(room.CreatorID), userID)
	require.NoError(t, err)
	inv, err = h.invitations.Respond(ctx, inv.ID, actor(userID), models.InvitationAccepted)
	require.NoError(t, err)
	return inv
}

func (h *harness) notificationsOf(t *testing.T, userID int) []models.NotificationView {
	t.Helper()
	page, err := h.notifications.List(ctx, userID, models.NotificationFilter{})
	require.NoError(t, err)
	return page.Notifications
}
