package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/estimaite/internal/models"
)

func TestJoin_SameNameDifferentSessions(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	normal := mustJoin(t, s, code, "Alice", "session-normal")
	private := mustJoin(t, s, code, "Alice", "session-private")

	assert.True(t, normal.IsNew)
	assert.True(t, private.IsNew)
	assert.NotEqual(t, normal.Participant.ID, private.Participant.ID)

	snap, _ := s.Snapshot(code)
	require.Len(t, snap.Participants, 2)
	assert.Equal(t, "Alice", snap.Participants[0].Name)
	assert.Equal(t, "Alice", snap.Participants[1].Name)

	p1, ok := s.ParticipantBySessionID(code, "session-normal")
	require.True(t, ok)
	assert.Equal(t, normal.Participant.ID, p1.ID)
	p2, ok := s.ParticipantBySessionID(code, "session-private")
	require.True(t, ok)
	assert.Equal(t, private.Participant.ID, p2.ID)
}

func TestJoin_FirstParticipantIsModerator(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	first := mustJoin(t, s, code, "Alice", "s1")
	second := mustJoin(t, s, code, "Alice", "s2")

	assert.True(t, first.IsModerator)
	assert.False(t, second.IsModerator)
	snap, _ := s.Snapshot(code)
	assert.Equal(t, first.Participant.ID, snap.ModeratorID)
}

func TestJoin_ReconnectUpdatesInPlace(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")

	first := mustJoin(t, s, code, "Alice", "s1")
	require.True(t, s.SetReady(code, first.Participant.ID, true))

	clock.Advance(5 * time.Second)
	again := mustJoin(t, s, code, "Alicia", "s1")

	assert.False(t, again.IsNew)
	assert.False(t, again.Duplicate)
	assert.Equal(t, first.Participant.ID, again.Participant.ID)
	assert.Equal(t, "Alicia", again.Participant.Name)
	assert.False(t, again.Participant.IsReady)
	assert.Equal(t, clock.Now(), again.Participant.JoinedAt)

	snap, _ := s.Snapshot(code)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "Alicia", snap.Participants[0].Name)
}

func TestJoin_ReconnectKeepsEstimate(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")
	alice := mustJoin(t, s, code, "Alice", "s1")
	require.True(t, s.SubmitStory(code, "", storyTitled("story")))
	require.True(t, s.SubmitEstimate(code, alice.Participant.ID, 8))

	clock.Advance(10 * time.Second)
	again := mustJoin(t, s, code, "Alice", "s1")

	require.NotNil(t, again.Participant.Estimate)
	assert.Equal(t, 8.0, *again.Participant.Estimate)
	snap, _ := s.Snapshot(code)
	assert.Len(t, snap.Estimates, 1)
}

func TestJoin_RapidRepeatIsDuplicate(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")

	first := mustJoin(t, s, code, "Alice", "s1")
	clock.Advance(300 * time.Millisecond)
	dup := mustJoin(t, s, code, "Renamed", "s1")

	assert.True(t, dup.Duplicate)
	assert.False(t, dup.IsNew)
	assert.Equal(t, first.Participant.ID, dup.Participant.ID)
	assert.Equal(t, "Alice", dup.Participant.Name, "duplicate must not modify the record")
	assert.Equal(t, first.Participant.JoinedAt, dup.Participant.JoinedAt)
}

func TestJoin_DuplicateWindowConfigurable(t *testing.T) {
	s, clock := newTestStore(t, WithDuplicateJoinWindow(0))
	code := mustCreate(t, s, "room")

	mustJoin(t, s, code, "Alice", "s1")
	clock.Advance(time.Millisecond)
	again := mustJoin(t, s, code, "Alice", "s1")

	assert.False(t, again.Duplicate)
}

func TestJoin_RepeatedJoinsNeverGrowCount(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")

	for i := 0; i < 10; i++ {
		mustJoin(t, s, code, "Alice", "s1")
		clock.Advance(700 * time.Millisecond)
	}

	snap, _ := s.Snapshot(code)
	assert.Len(t, snap.Participants, 1)
}

func TestJoin_WithoutSessionAlwaysCreates(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	a := mustJoin(t, s, code, "Bob", "")
	b := mustJoin(t, s, code, "Bob", "")

	assert.True(t, a.IsNew)
	assert.True(t, b.IsNew)
	assert.NotEmpty(t, a.Participant.SessionID, "a session id is generated")
	assert.NotEqual(t, a.Participant.SessionID, b.Participant.SessionID)

	snap, _ := s.Snapshot(code)
	assert.Len(t, snap.Participants, 2)
}

func TestJoin_RejectsBlankNameAndUnknownRoom(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	_, ok := s.Join(code, JoinRequest{Name: "  ", SessionID: "s1"})
	assert.False(t, ok)
	_, ok = s.Join("MISSING1", JoinRequest{Name: "Alice", SessionID: "s1"})
	assert.False(t, ok)
}

func TestJoin_TruncatesLongNames(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	long := ""
	for i := 0; i < 80; i++ {
		long += "x"
	}
	res := mustJoin(t, s, code, long, "s1")
	assert.Len(t, res.Participant.Name, MaxNameLength)
}

func TestJoin_PurgesStaleDuplicates(t *testing.T) {
	s, clock := newTestStore(t)
	code := mustCreate(t, s, "room")

	// A crashed join left a record for s1 that reconnect will resolve to.
	require.True(t, s.AddParticipant(code, models.Participant{ID: "stale", Name: "Alice", SessionID: "s1"}))
	clock.Advance(2 * time.Second)

	res := mustJoin(t, s, code, "Alice", "s1")

	assert.Equal(t, "stale", res.Participant.ID)
	snap, _ := s.Snapshot(code)
	assert.Len(t, snap.Participants, 1)
}

func TestAddParticipant_EnforcesOneRecordPerSession(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	require.True(t, s.AddParticipant(code, models.Participant{ID: "old", Name: "Alice", SessionID: "s1"}))
	require.True(t, s.AddParticipant(code, models.Participant{ID: "new", Name: "Alice", SessionID: "s1"}))

	snap, _ := s.Snapshot(code)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "new", snap.Participants[0].ID)
}

func TestAddParticipant_UpsertsById(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	require.True(t, s.AddParticipant(code, models.Participant{ID: "p1", Name: "Alice"}))
	require.True(t, s.AddParticipant(code, models.Participant{ID: "p1", Name: "Alice B", IsReady: true}))

	snap, _ := s.Snapshot(code)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "Alice B", snap.Participants[0].Name)
	assert.True(t, snap.Participants[0].IsReady)
}

func TestCleanupStaleParticipantsBySession(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")
	require.True(t, s.AddParticipant(code, models.Participant{ID: "keep", Name: "Alice", SessionID: "s1"}))
	require.True(t, s.AddParticipant(code, models.Participant{ID: "other", Name: "Bob", SessionID: "s2"}))

	assert.False(t, s.CleanupStaleParticipantsBySession(code, "s1", "keep"), "nothing stale")
	assert.False(t, s.CleanupStaleParticipantsBySession(code, "", "keep"), "empty session")

	assert.True(t, s.CleanupStaleParticipantsBySession(code, "s1", "someone-else"))
	snap, _ := s.Snapshot(code)
	require.Len(t, snap.Participants, 1)
	assert.Equal(t, "other", snap.Participants[0].ID)
}

func TestParticipantBySessionID_EmptySession(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")
	mustJoin(t, s, code, "Alice", "s1")

	_, ok := s.ParticipantBySessionID(code, "")
	assert.False(t, ok)
	_, ok = s.ParticipantBySessionID(code, "unknown")
	assert.False(t, ok)
}

func TestJoin_ConcurrentSessions(t *testing.T) {
	s, _ := newTestStore(t)
	code := mustCreate(t, s, "room")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Join(code, JoinRequest{Name: "Same Name", SessionID: "session-" + string(rune('A'+i%26)) + string(rune('a'+i/26))})
		}(i)
	}
	wg.Wait()

	snap, _ := s.Snapshot(code)
	assert.Len(t, snap.Participants, 50)
}
