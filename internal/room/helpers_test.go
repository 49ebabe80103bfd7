package room

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zulandar/estimaite/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewStore(opts...), clock
}

func mustCreate(t *testing.T, s *Store, name string) string {
	t.Helper()
	code, err := s.CreateRoom(name)
	require.NoError(t, err)
	return code
}

func mustJoin(t *testing.T, s *Store, code, name, session string) JoinResult {
	t.Helper()
	res, ok := s.Join(code, JoinRequest{Name: name, SessionID: session})
	require.True(t, ok, "join %s/%s", name, session)
	return res
}

func storyTitled(title string) models.Story {
	return models.Story{Title: title, Description: title + " description"}
}
