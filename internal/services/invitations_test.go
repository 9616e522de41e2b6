package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomloop/internal/models"
	"roomloop/internal/services"
)

func TestReinviteAfterDeclineFlipsSameRow(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{})

	first, created, err := h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = h.invitations.Respond(ctx, first.ID, actor(2), models.InvitationDeclined)
	require.NoError(t, err)

	again, created, err := h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, models.InvitationPending, again.Status)

	list, err := h.invitations.ListForRoom(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	notes := h.notificationsOf(t, 2)
	require.Len(t, notes, 2)
	assert.Contains(t, notes[0].Content, "invited again")
	assert.Equal(t, models.NotificationInvitation, notes[0].Type)
	ref, ok := notes[0].Reference().(models.InvitationRef)
	require.True(t, ok)
	assert.Equal(t, first.ID, ref.InvitationID)
}

func TestReinviteAfterLeaving(t *testing.T) {
	h := newHarness()
	room := h.liveRoom(t, 1, services.RoomInput{})
	inv := h.admit(t, room, 2)
	require.NoError(t, h.membership.Leave(ctx, room.ID, 2))

	again, created, err := h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, inv.ID, again.ID)

	members, err := h.store.ListParticipants(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestInviteRejections(t *testing.T) {
	h := newHarness()
	room := h.liveRoom(t, 1, services.RoomInput{})

	_, _, err := h.invitations.Invite(ctx, room.ID, actor(2), 3)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, _, err = h.invitations.Invite(ctx, room.ID, actor(1), 1)
	assert.ErrorIs(t, err, services.ErrSelfInvite)

	_, _, err = h.invitations.Invite(ctx, room.ID, actor(1), 0)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, _, err = h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)
	_, _, err = h.invitations.Invite(ctx, room.ID, actor(1), 2)
	assert.ErrorIs(t, err, services.ErrDuplicatePending)

	h.admit(t, room, 3)
	_, _, err = h.invitations.Invite(ctx, room.ID, actor(1), 3)
	assert.ErrorIs(t, err, services.ErrAlreadyActive)

	_, _, err = h.invitations.Invite(ctx, 404, actor(1), 3)
	assert.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestRespondAcceptActivatesAndNotifiesInviter(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{})
	inv, _, err := h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)

	_, err = h.invitations.Respond(ctx, inv.ID, actor(3), models.InvitationAccepted)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = h.invitations.Respond(ctx, inv.ID, actor(2), "maybe")
	assert.ErrorIs(t, err, services.ErrValidation)

	accepted, err := h.invitations.Respond(ctx, inv.ID, actor(2), models.InvitationAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, accepted.Status)

	active, err := h.membership.IsActive(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.True(t, active)

	notes := h.notificationsOf(t, 1)
	require.Len(t, notes, 1)
	assert.Equal(t, "user2 accepted your invitation", notes[0].Content)

	_, err = h.invitations.Respond(ctx, inv.ID, actor(2), models.InvitationDeclined)
	assert.ErrorIs(t, err, services.ErrAlreadyResponded)

	_, err = h.invitations.Respond(ctx, 999, actor(2), models.InvitationAccepted)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)
}

func TestRespondDeclineLeavesMembershipInactive(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{})
	inv, _, err := h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)

	_, err = h.invitations.Respond(ctx, inv.ID, actor(2), models.InvitationDeclined)
	require.NoError(t, err)

	p, err := h.store.GetParticipant(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.False(t, p.Active)
	assert.Empty(t, h.notificationsOf(t, 1))
}

func TestInvitationListingsAndDelete(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{Title: "Design review"})
	inv, _, err := h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)

	received, err := h.invitations.ListReceived(ctx, 2)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "Design review", received[0].RoomTitle)

	sent, err := h.invitations.ListSent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, sent, 1)

	_, err = h.invitations.ListForRoom(ctx, room.ID, 2)
	assert.ErrorIs(t, err, services.ErrForbidden)

	assert.ErrorIs(t, h.invitations.Delete(ctx, inv.ID, 2), services.ErrForbidden)
	require.NoError(t, h.invitations.Delete(ctx, inv.ID, 1))
	assert.ErrorIs(t, h.invitations.Delete(ctx, inv.ID, 1), services.ErrInvitationNotFound)
}

func TestConcurrentInvitesCreateOnePending(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{})

	const callers = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := h.invitations.Invite(ctx, room.ID, actor(1), 3)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && isNew:
				created++
			case errors.Is(err, services.ErrDuplicatePending):
				duplicates++
			default:
				t.Errorf("unexpected result new=%t err=%v", isNew, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, callers-1, duplicates)
	list, err := h.store.ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.InvitationPending, list[0].Status)
	members, err := h.store.ListParticipants(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
