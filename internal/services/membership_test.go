package services_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomloop/internal/models"
	"roomloop/internal/services"
)

func TestJoinTwiceLeavesOneActiveRecord(t *testing.T) {
	h := newHarness()
	room := h.publicLiveRoom(t, 1)

	first, err := h.membership.Join(ctx, room.ID, 2)
	require.NoError(t, err)
	second, err := h.membership.Join(ctx, room.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	members, err := h.store.ListParticipants(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	count, err := h.store.CountActive(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestJoinLeaveJoinReusesRecord(t *testing.T) {
	h := newHarness()
	room := h.publicLiveRoom(t, 1)

	joined, err := h.membership.Join(ctx, room.ID, 2)
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	require.NoError(t, h.membership.Leave(ctx, room.ID, 2))
	left, err := h.store.GetParticipant(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.False(t, left.Active)
	require.NotNil(t, left.LeftAt)
	assert.True(t, left.LeftAt.Equal(h.clock.Now()))

	require.Len(t, h.bus.Detached, 1)
	assert.Equal(t, room.ID, h.bus.Detached[0].RoomID)
	assert.Equal(t, 2, h.bus.Detached[0].UserID)

	h.clock.Advance(time.Minute)
	rejoined, err := h.membership.Join(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, joined.ID, rejoined.ID)
	assert.True(t, rejoined.Active)
	assert.Nil(t, rejoined.LeftAt)
	assert.True(t, rejoined.JoinedAt.Equal(h.clock.Now()))

	members, err := h.store.ListParticipants(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestLeaveWithoutActiveMembership(t *testing.T) {
	h := newHarness()
	room := h.publicLiveRoom(t, 1)

	assert.ErrorIs(t, h.membership.Leave(ctx, room.ID, 2), services.ErrNotAMember)

	_, err := h.membership.Join(ctx, room.ID, 2)
	require.NoError(t, err)
	require.NoError(t, h.membership.Leave(ctx, room.ID, 2))
	assert.ErrorIs(t, h.membership.Leave(ctx, room.ID, 2), services.ErrNotAMember)
}

func TestJoinRequiresLiveRoom(t *testing.T) {
	h := newHarness()
	room := h.createRoom(t, 1, services.RoomInput{Visibility: models.VisibilityPublic})

	_, err := h.membership.Join(ctx, room.ID, 2)
	assert.ErrorIs(t, err, services.ErrNotLive)
	assert.Equal(t, services.KindStateConflict, services.KindOf(err))

	h.clock.Advance(3 * time.Hour)
	_, err = h.membership.Join(ctx, room.ID, 2)
	assert.ErrorIs(t, err, services.ErrNotLive)

	_, err = h.membership.Join(ctx, 404, 2)
	assert.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestJoinPrivateRoomNeedsAcceptedInvitation(t *testing.T) {
	h := newHarness()
	room := h.liveRoom(t, 1, services.RoomInput{})

	_, err := h.membership.Join(ctx, room.ID, 2)
	assert.ErrorIs(t, err, services.ErrNotAuthorized)
	assert.Equal(t, services.KindForbidden, services.KindOf(err))

	inv, _, err := h.invitations.Invite(ctx, room.ID, actor(1), 2)
	require.NoError(t, err)
	_, err = h.membership.Join(ctx, room.ID, 2)
	assert.ErrorIs(t, err, services.ErrNotAuthorized, "pending invitation is not enough")

	_, err = h.invitations.Respond(ctx, inv.ID, actor(2), models.InvitationAccepted)
	require.NoError(t, err)
	require.NoError(t, h.membership.Leave(ctx, room.ID, 2))

	p, err := h.membership.Join(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.True(t, p.Active)
}

func TestPrivateRoomCapacityScenario(t *testing.T) {
	h := newHarness()
	capacity := 1
	room := h.liveRoom(t, 1, services.RoomInput{MaxParticipants: &capacity})

	_, err := h.membership.Join(ctx, room.ID, 2)
	assert.ErrorIs(t, err, services.ErrNotAuthorized)

	h.admit(t, room, 2)
	p, err := h.membership.Join(ctx, room.ID, 2)
	require.NoError(t, err)
	assert.True(t, p.Active)

	h.admit(t, room, 3)
	require.NoError(t, h.membership.Leave(ctx, room.ID, 3))

	_, err = h.membership.Join(ctx, room.ID, 3)
	assert.ErrorIs(t, err, services.ErrRoomFull)
	assert.Equal(t, services.KindCapacity, services.KindOf(err))

	active, err := h.membership.IsActive(ctx, room.ID, 3)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestCreatorJoinsOwnPrivateRoom(t *testing.T) {
	h := newHarness()
	room := h.liveRoom(t, 1, services.RoomInput{})
	require.NoError(t, h.membership.Leave(ctx, room.ID, 1))

	p, err := h.membership.Join(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.True(t, p.Active)
}

func TestConcurrentJoinsKeepOneRecord(t *testing.T) {
	h := newHarness()
	room := h.publicLiveRoom(t, 1)

	const callers = 16
	var wg sync.WaitGroup
	ids := make([]int, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := h.membership.Join(ctx, room.ID, 2)
			ids[i], errs[i] = p.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	members, err := h.store.ListParticipants(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	count, err := h.store.CountActive(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
