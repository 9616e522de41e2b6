package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStatusBoundaries(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	cases := []struct {
		name string
		now  time.Time
		want RoomStatus
	}{
		{"before start", start.Add(-time.Nanosecond), RoomStatusScheduled},
		{"at start", start, RoomStatusLive},
		{"middle", start.Add(30 * time.Minute), RoomStatusLive},
		{"at end", end, RoomStatusLive},
		{"after end", end.Add(time.Nanosecond), RoomStatusClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveStatus(start, end, tc.now))
		})
	}
}

func TestResolveStatusMonotonicInTime(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	rank := map[RoomStatus]int{RoomStatusScheduled: 0, RoomStatusLive: 1, RoomStatusClosed: 2}

	prev := -1
	for now := start.Add(-time.Hour); now.Before(end.Add(time.Hour)); now = now.Add(7 * time.Minute) {
		status := ResolveStatus(start, end, now)
		r, ok := rank[status]
		require.True(t, ok, "unexpected status %q", status)
		require.GreaterOrEqual(t, r, prev, "status went backwards at %s", now)
		prev = r
	}
	assert.Equal(t, 2, prev)
}

func TestRoomResolveStatusUsesSchedule(t *testing.T) {
	now := time.Now()
	room := Room{StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour), Status: RoomStatusClosed}

	assert.Equal(t, RoomStatusScheduled, room.ResolveStatus(now))
	assert.Equal(t, RoomStatusLive, room.ResolveStatus(now.Add(90*time.Minute)))
}

func TestReferenceColumnsRoundTrip(t *testing.T) {
	refs := []Reference{RoomRef{RoomID: 3}, InvitationRef{InvitationID: 4}, MessageRef{MessageID: 5}}
	for _, ref := range refs {
		kind, id := ReferenceColumns(ref)
		require.NotNil(t, kind)
		require.NotNil(t, id)
		assert.Equal(t, ref, NewReference(kind, id))
	}

	kind, id := ReferenceColumns(nil)
	assert.Nil(t, kind)
	assert.Nil(t, id)
	assert.Nil(t, NewReference(nil, nil))

	unknown := "survey"
	seven := 7
	assert.Nil(t, NewReference(&unknown, &seven))
}
