package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomloop/internal/models"
	"roomloop/internal/repositories"
	"roomloop/internal/services"
)

func TestCreateRoomValidation(t *testing.T) {
	h := newHarness()
	start := t0.Add(time.Hour)
	zero := 0

	cases := []struct {
		name string
		in   services.RoomInput
		want error
	}{
		{"blank title", services.RoomInput{Title: "   ", StartTime: start, EndTime: start.Add(time.Hour)}, services.ErrValidation},
		{"long title", services.RoomInput{Title: strings.Repeat("a", 101), StartTime: start, EndTime: start.Add(time.Hour)}, services.ErrValidation},
		{"long description", services.RoomInput{Title: "x", Description: strings.Repeat("d", 501), StartTime: start, EndTime: start.Add(time.Hour)}, services.ErrValidation},
		{"unknown tag", services.RoomInput{Title: "x", Tag: "party", StartTime: start, EndTime: start.Add(time.Hour)}, services.ErrValidation},
		{"unknown visibility", services.RoomInput{Title: "x", Visibility: "secret", StartTime: start, EndTime: start.Add(time.Hour)}, services.ErrValidation},
		{"zero capacity", services.RoomInput{Title: "x", MaxParticipants: &zero, StartTime: start, EndTime: start.Add(time.Hour)}, services.ErrValidation},
		{"bad pattern", services.RoomInput{Title: "x", IsRecurring: true, RecurrencePattern: "yearly", StartTime: start, EndTime: start.Add(time.Hour)}, services.ErrValidation},
		{"start in past", services.RoomInput{Title: "x", StartTime: t0.Add(-time.Minute), EndTime: start}, services.ErrInvalidRange},
		{"end before start", services.RoomInput{Title: "x", StartTime: start, EndTime: start}, services.ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.rooms.Create(ctx, 1, tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, services.KindValidation, services.KindOf(err))
		})
	}
}

func TestCreateRoomDefaultsAndCreatorMembership(t *testing.T) {
	h := newHarness()

	room := h.createRoom(t, 1, services.RoomInput{Title: "  Focus hour  "})

	assert.Equal(t, "Focus hour", room.Title)
	assert.Equal(t, models.VisibilityPrivate, room.Visibility)
	assert.Equal(t, "other", room.Tag)
	assert.Equal(t, models.RoomStatusScheduled, room.Status)

	p, err := h.store.GetParticipant(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.True(t, p.Active)
}

func TestStatusHealsOnRead(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{StartTime: t0.Add(time.Hour), EndTime: t0.Add(2 * time.Hour)})

	detail, err := h.rooms.Get(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusScheduled, detail.Status)

	h.clock.Advance(90 * time.Minute)

	detail, err = h.rooms.Get(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusLive, detail.Status)

	stored, err := h.store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusLive, stored.Status)
}

func TestGetPrivateRoomRequiresMembershipRecord(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{})

	_, err := h.rooms.Get(ctx, room.ID, 2)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, _, err = h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)

	detail, err := h.rooms.Get(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, detail.Participants)

	_, err = h.rooms.Get(ctx, 999, 1)
	assert.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestListPublicFilters(t *testing.T) {
	h := newHarness()
	later := h.createRoom(t, 1, services.RoomInput{Visibility: models.VisibilityPublic, Tag: "work"})
	soon := h.createRoom(t, 2, services.RoomInput{Visibility: models.VisibilityPublic, StartTime: t0.Add(10 * time.Minute)})
	h.createRoom(t, 3, services.RoomInput{})

	h.clock.Advance(15 * time.Minute)

	all, err := h.rooms.ListPublic(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, soon.ID, all[0].ID)
	assert.Equal(t, models.RoomStatusLive, all[0].Status)
	assert.Equal(t, later.ID, all[1].ID)

	live, err := h.rooms.ListPublic(ctx, models.RoomStatusLive, "")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, soon.ID, live[0].ID)

	scheduled, err := h.rooms.ListPublic(ctx, models.RoomStatusScheduled, "work")
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, later.ID, scheduled[0].ID)
}

func TestListMineAndParticipating(t *testing.T) {
	h := newHarness()
	mine := h.createRoom(t, 1, services.RoomInput{})
	other := h.createRoom(t, 2, services.RoomInput{})
	_, _, err := h.invitations.Invite(ctx, other.ID, actor(2), 1)
	require.NoError(t, err)

	created, err := h.rooms.ListMine(ctx, 1)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, mine.ID, created[0].ID)

	participating, err := h.rooms.ListParticipating(ctx, 1)
	require.NoError(t, err)
	require.Len(t, participating, 1)
	assert.Equal(t, other.ID, participating[0].ID)
}

func TestCloseLiveRoomSignalsAndNotifiesActiveParticipants(t *testing.T) {
	h := newHarness()
	room := h.publicLiveRoom(t, 1, 2, 3, 4)

	closed, err := h.rooms.Close(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusClosed, closed.Status)
	assert.True(t, closed.EndTime.Equal(h.clock.Now().Add(-time.Microsecond)))

	events := h.bus.RoomEvents(models.EventRoomStatusChange)
	require.Len(t, events, 1)
	assert.Equal(t, room.ID, events[0].RoomID)
	change := events[0].Event.Data.(models.RoomStatusChange)
	assert.Equal(t, models.RoomStatusClosed, change.Status)
	assert.Equal(t, models.StatusActionClosed, change.Action)

	for _, userID := range []int{2, 3, 4} {
		list := h.notificationsOf(t, userID)
		require.Len(t, list, 1, "user %d", userID)
		assert.Equal(t, models.NotificationRoomUpdate, list[0].Type)
		assert.Contains(t, list[0].Content, "closed by the host")
		require.NotNil(t, list[0].ReferenceExists)
		assert.True(t, *list[0].ReferenceExists)
		assert.Len(t, h.bus.UserEvents(userID, models.EventNewNotification), 1)
	}
	assert.Empty(t, h.notificationsOf(t, 1))

	detail, err := h.rooms.Get(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusClosed, detail.Status, "read at the closing instant")

	h.clock.Advance(time.Second)
	detail, err = h.rooms.Get(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusClosed, detail.Status)

	again, err := h.rooms.Close(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusClosed, again.Status)
	assert.Len(t, h.bus.RoomEvents(models.EventRoomStatusChange), 1)
}

func TestCloseRejections(t *testing.T) {
	h := newHarness()
	scheduled := h.createRoom(t, 1, services.RoomInput{})

	_, err := h.rooms.Close(ctx, scheduled.ID, 2)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = h.rooms.Close(ctx, scheduled.ID, 1)
	assert.ErrorIs(t, err, services.ErrNotLive)
}

func TestExtend(t *testing.T) {
	h := newHarness()
	scheduled := h.createRoom(t, 1, services.RoomInput{StartTime: t0.Add(3 * time.Hour)})
	room := h.liveRoom(t, 1, services.RoomInput{})

	for _, minutes := range []int{0, -5, 241} {
		_, err := h.rooms.Extend(ctx, room.ID, 1, minutes)
		assert.ErrorIs(t, err, services.ErrInvalidRange, "minutes=%d", minutes)
	}

	_, err := h.rooms.Extend(ctx, room.ID, 2, 30)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = h.rooms.Extend(ctx, scheduled.ID, 1, 30)
	assert.ErrorIs(t, err, services.ErrNotLive)

	extended, err := h.rooms.Extend(ctx, room.ID, 1, 30)
	require.NoError(t, err)
	assert.True(t, extended.EndTime.Equal(room.EndTime.Add(30*time.Minute)))

	events := h.bus.RoomEvents(models.EventRoomStatusChange)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusActionExtended, events[0].Event.Data.(models.RoomStatusChange).Action)
}

func TestRescheduleClosedNonRecurringRoom(t *testing.T) {
	h := newHarness()
	room := h.liveRoom(t, 1, services.RoomInput{})
	_, err := h.rooms.Close(ctx, room.ID, 1)
	require.NoError(t, err)
	h.clock.Advance(time.Second)

	start := h.clock.Now().Add(24 * time.Hour)
	_, err = h.rooms.Reschedule(ctx, room.ID, 1, start, start.Add(time.Hour))
	assert.ErrorIs(t, err, services.ErrNotReschedulable)
}

func TestRescheduleValidation(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{})

	_, err := h.rooms.Reschedule(ctx, room.ID, 1, t0.Add(-time.Hour), t0.Add(time.Hour))
	assert.ErrorIs(t, err, services.ErrInvalidRange)

	_, err = h.rooms.Reschedule(ctx, room.ID, 1, t0.Add(2*time.Hour), t0.Add(time.Hour))
	assert.ErrorIs(t, err, services.ErrInvalidRange)

	_, err = h.rooms.Reschedule(ctx, room.ID, 2, t0.Add(2*time.Hour), t0.Add(3*time.Hour))
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestRescheduleRecurringRoomReopensAndNotifiesAllMembers(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{IsRecurring: true, RecurrencePattern: "weekly"})
	originalStart, originalEnd := room.StartTime, room.EndTime

	h.admit(t, room, 2)
	declined, _, err := h.invitations.Invite(ctx, room.ID, actor(1), 3)
	require.NoError(t, err)
	_, err = h.invitations.Respond(ctx, declined.ID, actor(3), models.InvitationDeclined)
	require.NoError(t, err)

	h.clock.Advance(room.StartTime.Sub(h.clock.Now()) + time.Minute)
	closed, err := h.rooms.Close(ctx, room.ID, 1)
	require.NoError(t, err)
	require.True(t, closed.EndTime.Before(originalEnd))
	h.clock.Advance(time.Second)

	start := h.clock.Now().Add(7 * 24 * time.Hour)
	moved, err := h.rooms.Reschedule(ctx, room.ID, 1, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusScheduled, moved.Status)
	assert.True(t, moved.WasRescheduled)
	require.NotNil(t, moved.OriginalStartTime)
	assert.True(t, moved.OriginalStartTime.Equal(originalStart))
	assert.True(t, moved.OriginalEndTime.Equal(closed.EndTime), "snapshot keeps the end set by close")

	for _, userID := range []int{2, 3} {
		assert.Equal(t, 1, countContaining(h.notificationsOf(t, userID), "rescheduled"), "user %d", userID)
	}
	assert.Zero(t, countContaining(h.notificationsOf(t, 1), "rescheduled"))

	last := h.bus.RoomEvents(models.EventRoomStatusChange)
	assert.Equal(t, models.StatusActionRescheduled, last[len(last)-1].Event.Data.(models.RoomStatusChange).Action)

	again := start.Add(24 * time.Hour)
	moved, err = h.rooms.Reschedule(ctx, room.ID, 1, again, again.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, moved.OriginalStartTime.Equal(originalStart))
}

func TestUpdateRoom(t *testing.T) {
	h := newHarness()
	capacity := 5
	room := h.createRoom(t, 1, services.RoomInput{MaxParticipants: &capacity})

	title := "Retro"
	noCap := 0
	newStart := t0.Add(3 * time.Hour)
	updated, err := h.rooms.Update(ctx, room.ID, 1, services.RoomUpdate{Title: &title, MaxParticipants: &noCap, StartTime: &newStart, EndTime: ptrTime(newStart.Add(time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, "Retro", updated.Title)
	assert.Nil(t, updated.MaxParticipants)
	assert.True(t, updated.StartTime.Equal(newStart))

	_, err = h.rooms.Update(ctx, room.ID, 2, services.RoomUpdate{Title: &title})
	assert.ErrorIs(t, err, services.ErrForbidden)

	h.clock.Advance(3*time.Hour + time.Minute)
	later := h.clock.Now().Add(time.Hour)
	_, err = h.rooms.Update(ctx, room.ID, 1, services.RoomUpdate{StartTime: &later})
	assert.ErrorIs(t, err, services.ErrAlreadyStarted)

	summary := "went well"
	updated, err = h.rooms.Update(ctx, room.ID, 1, services.RoomUpdate{Summary: &summary})
	require.NoError(t, err)
	assert.Equal(t, "went well", updated.Summary)

	_, err = h.rooms.Close(ctx, room.ID, 1)
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	_, err = h.rooms.Update(ctx, room.ID, 1, services.RoomUpdate{Title: &title})
	assert.ErrorIs(t, err, services.ErrRoomClosed)
}

func TestDeleteRoomKeepsDanglingNotifications(t *testing.T) {
	h := newHarness()
	room := h.publicLiveRoom(t, 1, 2)
	_, err := h.rooms.Close(ctx, room.ID, 1)
	require.NoError(t, err)
	h.clock.Advance(time.Second)

	assert.ErrorIs(t, h.rooms.Delete(ctx, room.ID, 2), services.ErrForbidden)
	require.NoError(t, h.rooms.Delete(ctx, room.ID, 1))

	_, err = h.store.GetParticipant(ctx, room.ID, 2)
	assert.ErrorIs(t, err, repositories.ErrParticipantNotFound)

	list := h.notificationsOf(t, 2)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].ReferenceExists)
	assert.False(t, *list[0].ReferenceExists)
	assert.Nil(t, list[0].Target)
}

func countContaining(list []models.NotificationView, fragment string) int {
	n := 0
	for _, v := range list {
		if strings.Contains(v.Content, fragment) {
			n++
		}
	}
	return n
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
