package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/estimaite/internal/db"
	"github.com/zulandar/estimaite/internal/feedback"
	"github.com/zulandar/estimaite/internal/models"
	"github.com/zulandar/estimaite/internal/notify"
	"github.com/zulandar/estimaite/internal/room"
)

const testOrigin = "https://poker.example.com"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	router   *gin.Engine
	rooms    *room.Service
	hub      *notify.Hub
	feedback *feedback.Service
	clock    *fakeClock
}

type envOpts struct {
	heartbeat   time.Duration
	createLimit RateLimit
	roomOpts    []room.Option
}

func newTestEnv(t *testing.T, roomOpts ...room.Option) *testEnv {
	return newTestEnvWith(t, envOpts{heartbeat: time.Second, roomOpts: roomOpts})
}

func newTestEnvWith(t *testing.T, o envOpts) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	store := room.NewStore(append([]room.Option{room.WithClock(clk.Now)}, o.roomOpts...)...)
	hub := notify.NewHub()
	svc := room.NewService(store, hub, zerolog.Nop())

	gdb, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	t.Cleanup(func() { db.Close(gdb) })
	fb, err := feedback.NewService(gdb, nil, zerolog.Nop())
	require.NoError(t, err)

	router, err := NewRouter(StartOpts{
		Rooms:          svc,
		Hub:            hub,
		Feedback:       fb,
		AllowedOrigins: []string{testOrigin},
		Heartbeat:      o.heartbeat,
		CreateLimit:    o.createLimit,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)

	return &testEnv{router: router, rooms: svc, hub: hub, feedback: fb, clock: clk}
}

// do performs a request against the router and decodes the JSON body into out
// when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "est-test")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
	}
	return w
}

func (e *testEnv) createRoom(t *testing.T, name string) string {
	t.Helper()
	var resp struct {
		RoomID string `json:"roomId"`
	}
	w := e.do(t, http.MethodPost, "/api/rooms", map[string]string{"name": name}, &resp)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return resp.RoomID
}

type actionResponse struct {
	Success     bool               `json:"success"`
	Error       string             `json:"error"`
	Participant models.Participant `json:"participant"`
	RoomState   *models.RoomState  `json:"roomState"`
	IsModerator bool               `json:"isModerator"`
	IsNew       bool               `json:"isNew"`
}

func (e *testEnv) act(t *testing.T, code string, body map[string]any) (int, actionResponse) {
	t.Helper()
	var resp actionResponse
	w := e.do(t, http.MethodPost, "/api/rooms/"+code+"/actions", body, &resp)
	return w.Code, resp
}

func (e *testEnv) join(t *testing.T, code, name, session string) models.Participant {
	t.Helper()
	status, resp := e.act(t, code, map[string]any{
		"action":          "join",
		"participantName": name,
		"sessionId":       session,
	})
	require.Equal(t, http.StatusOK, status, resp.Error)
	return resp.Participant
}
