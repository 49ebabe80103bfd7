package room

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom_IssuesValidCode(t *testing.T) {
	s, _ := newTestStore(t)

	code := mustCreate(t, s, "Sprint 1")

	assert.Len(t, code, CodeLength)
	assert.True(t, ValidCode(code))
	assert.True(t, s.RoomExists(code))

	snap, ok := s.Snapshot(code)
	require.True(t, ok)
	assert.Equal(t, "Sprint 1", snap.Room.Name)
	assert.Empty(t, snap.Participants)
	assert.Empty(t, snap.Estimates)
	assert.False(t, snap.Revealed)
	assert.Nil(t, snap.CurrentStory)
	assert.Nil(t, snap.VotingTimer)
}

func TestCreateRoom_CodesAreUnique(t *testing.T) {
	s, _ := newTestStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code := mustCreate(t, s, "room")
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	assert.Equal(t, 500, s.Len())
}

func TestCreateRoom_RegeneratesOnCollision(t *testing.T) {
	codes := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	i := 0
	gen := func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}
	s, _ := newTestStore(t, WithCodeGenerator(gen))

	first := mustCreate(t, s, "one")
	second := mustCreate(t, s, "two")

	assert.Equal(t, "AAAAAAAA", first)
	assert.Equal(t, "BBBBBBBB", second)
}

func TestCreateRoom_CodeSpaceExhausted(t *testing.T) {
	s, _ := newTestStore(t, WithCodeGenerator(func() (string, error) { return "AAAAAAAA", nil }))
	mustCreate(t, s, "one")

	_, err := s.CreateRoom("two")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCodeSpaceExhausted))
}

func TestCreateRoom_RejectsBlankName(t *testing.T) {
	s, _ := newTestStore(t)
	for _, name := range []string{"", "   ", "<>"} {
		_, err := s.CreateRoom(name)
		assert.ErrorIs(t, err, ErrInvalidRoomName, "name %q", name)
	}
	assert.Zero(t, s.Len())
}

func TestCreateRoom_SanitizesName(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "  <b>Planning</b>  ")
	snap, _ := s.Snapshot(code)
	assert.Equal(t, "bPlanning/b", snap.Room.Name)
}

func TestUnknownRoom_NeverPanics(t *testing.T) {
	s, _ := newTestStore(t)

	assert.False(t, s.RoomExists("NOPE0000"))
	_, ok := s.Snapshot("NOPE0000")
	assert.False(t, ok)
	assert.False(t, s.RemoveParticipant("NOPE0000", "p"))
	assert.False(t, s.RevealEstimates("NOPE0000", ""))
	assert.False(t, s.ResetEstimates("NOPE0000", ""))
	assert.False(t, s.ClearStoryAndReset("NOPE0000", ""))
	assert.False(t, s.IsVotingTimerExpired("NOPE0000"))
	_, ok = s.ParticipantBySessionID("NOPE0000", "s1")
	assert.False(t, ok)
}

func TestRecoverRoom(t *testing.T) {
	s, _ := newTestStore(t)

	assert.False(t, s.RecoverRoom("abc"), "malformed code")
	assert.False(t, s.RecoverRoom("abcdefgh"), "lowercase code")
	assert.False(t, s.RecoverRoom("ABCDEFGHI"), "too long")

	require.True(t, s.RecoverRoom("ZX81ZX81"))
	snap, ok := s.Snapshot("ZX81ZX81")
	require.True(t, ok)
	assert.Equal(t, RecoveredRoomName, snap.Room.Name)

	assert.False(t, s.RecoverRoom("ZX81ZX81"), "already exists")

	code := mustCreate(t, s, "live")
	assert.False(t, s.RecoverRoom(code))
}

func TestDeleteExpired_RemovesIdleRooms(t *testing.T) {
	s, clock := newTestStore(t)
	idle := mustCreate(t, s, "idle")
	clock.Advance(20 * time.Minute)
	busy := mustCreate(t, s, "busy")

	clock.Advance(11 * time.Minute)
	n := s.DeleteExpired(clock.Now())

	assert.Equal(t, 1, n)
	assert.False(t, s.RoomExists(idle))
	assert.True(t, s.RoomExists(busy))
	assert.Equal(t, []string{busy}, s.Codes())
}

func TestRoomExists_SweepsLazily(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")

	clock.Advance(DefaultTTL + time.Second)

	assert.Equal(t, 1, s.Len(), "not swept until checked")
	assert.False(t, s.RoomExists(code))
	assert.Zero(t, s.Len())
}

func TestActivity_KeepsRoomAlive(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")
	alice := mustJoin(t, s, code, "Alice", "s1")

	clock.Advance(20 * time.Minute)
	require.True(t, s.SetReady(code, alice.Participant.ID, true))
	clock.Advance(20 * time.Minute)

	assert.True(t, s.RoomExists(code))
}

func TestFailedMutation_DoesNotRefreshActivity(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")

	clock.Advance(20 * time.Minute)
	require.False(t, s.SubmitEstimate(code, "ghost", 5))
	clock.Advance(11 * time.Minute)

	assert.False(t, s.RoomExists(code))
}

func TestWithTTL(t *testing.T) {
	s, clock := newTestStore(t, WithTTL(time.Minute))
	code := mustCreate(t, s, "room")
	clock.Advance(2 * time.Minute)
	assert.False(t, s.RoomExists(code))
}

func TestSnapshot_IsDetached(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")
	alice := mustJoin(t, s, code, "Alice", "s1")
	require.True(t, s.SubmitStory(code, "", storyTitled("Login flow")))
	require.True(t, s.SubmitEstimate(code, alice.Participant.ID, 5))

	snap, _ := s.Snapshot(code)
	snap.CurrentStory.Title = "changed"
	*snap.Participants[0].Estimate = 13
	snap.Participants[0].Name = "Mallory"

	again, _ := s.Snapshot(code)
	assert.Equal(t, "Login flow", again.CurrentStory.Title)
	assert.Equal(t, 5.0, *again.Participants[0].Estimate)
	assert.Equal(t, "Alice", again.Participants[0].Name)
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"AB12CD34", true},
		{"12345678", true},
		{"ABCDEFGH", true},
		{"ab12cd34", false},
		{"AB12CD3", false},
		{"AB12CD345", false},
		{"AB12-D34", false},
		{"ÀB12CD34", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidCode(tt.code), "ValidCode(%q)", tt.code)
	}
}
