package room

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReaper_InvalidSchedule(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := NewReaper(s, "every now and then", zerolog.Nop())
	assert.Error(t, err)
}

func TestNewReaper_DefaultSchedule(t *testing.T) {
	s, _ := newTestStore(t)
	r, err := NewReaper(s, "", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, r.cron.Entries(), 1)
}

func TestReaper_RunOnceRemovesIdleRooms(t *testing.T) {
	s, clock := newTestStore(t)
	r, err := NewReaper(s, DefaultReaperSchedule, zerolog.Nop())
	require.NoError(t, err)

	idle := mustCreate(t, s, "idle")
	active := mustCreate(t, s, "active")
	a := mustJoin(t, s, active, "Alice", "s1").Participant

	clock.Advance(25 * time.Minute)
	require.True(t, s.SetReady(active, a.ID, true))
	assert.Equal(t, 0, r.RunOnce())

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, r.RunOnce())

	assert.False(t, s.RoomExists(idle))
	assert.True(t, s.RoomExists(active))
	assert.False(t, s.SetReady(idle, a.ID, true), "reaped rooms accept no mutations")
}

func TestReaper_StartStop(t *testing.T) {
	s, _ := newTestStore(t)
	r, err := NewReaper(s, "@every 1h", zerolog.Nop())
	require.NoError(t, err)

	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(ctx))
}
