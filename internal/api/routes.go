package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/feedback"
	"github.com/zulandar/estimaite/internal/notify"
	"github.com/zulandar/estimaite/internal/room"
)

type handler struct {
	rooms     *room.Service
	hub       *notify.Hub
	feedback  *feedback.Service
	log       zerolog.Logger
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	limit     gin.HandlerFunc

	// shutdown is closed when the server begins shutting down.
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func newHandler(opts StartOpts) *handler {
	return &handler{
		rooms:     opts.Rooms,
		hub:       opts.Hub,
		feedback:  opts.Feedback,
		log:       opts.Logger,
		heartbeat: opts.Heartbeat,
		limit:     rateLimited(opts.CreateLimit),
		shutdown:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(opts.AllowedOrigins, origin)
			},
		},
	}
}

// endStreams makes every open SSE and WebSocket stream return.
func (h *handler) endStreams() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

// registerRoutes sets up all API routes.
func registerRoutes(router *gin.Engine, h *handler) {
	router.GET("/healthz", h.health)

	api := router.Group("/api")
	api.POST("/rooms", h.limit, h.createRoom)
	api.GET("/rooms/:id", h.getRoom)
	api.GET("/rooms/:id/state", h.getState)
	api.POST("/rooms/:id/actions", h.action)
	api.GET("/rooms/:id/events", h.events)
	api.GET("/rooms/:id/ws", h.socket)

	if h.feedback != nil {
		api.POST("/feedback", h.limit, h.submitFeedback)
	}
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"rooms":  h.rooms.Store().Len(),
	})
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (h *handler) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		abortError(c, http.StatusBadRequest, "Room name is required")
		return
	}
	if utf8.RuneCountInString(name) > room.MaxNameLength {
		abortError(c, http.StatusBadRequest, "Room name must be 50 characters or less")
		return
	}

	code, err := h.rooms.Store().CreateRoom(name)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, room.ErrInvalidRoomName) {
			abortError(c, http.StatusBadRequest, "Room name is required")
			return
		}
		abortError(c, http.StatusInternalServerError, "Failed to create room")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roomId":  code,
		"name":    name,
		"message": "Room created successfully",
	})
}

// getRoom returns the room summary, recovering a well-formed code that is no
// longer in memory.
func (h *handler) getRoom(c *gin.Context) {
	code := roomCode(c)
	found, recovered := h.rooms.Resolve(code)
	if !found {
		abortError(c, http.StatusNotFound, "Room not found. The room may have expired or never existed.")
		return
	}
	h.rooms.CheckTimer(c.Request.Context(), code)

	snap, ok := h.rooms.Store().Snapshot(code)
	if !ok {
		abortError(c, http.StatusNotFound, "Room not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":           snap.Room.ID,
		"name":             snap.Room.Name,
		"participantCount": snap.Room.ParticipantCount,
		"currentStory":     snap.CurrentStory,
		"revealed":         snap.Revealed,
		"recovered":        recovered,
		"exists":           true,
	})
}

// getState returns the full snapshot. Unlike getRoom it never recovers.
func (h *handler) getState(c *gin.Context) {
	code := roomCode(c)
	if !h.rooms.Store().RoomExists(code) {
		abortError(c, http.StatusNotFound, "Room not found")
		return
	}
	h.rooms.CheckTimer(c.Request.Context(), code)

	snap, ok := h.rooms.Store().Snapshot(code)
	if !ok {
		abortError(c, http.StatusNotFound, "Room not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomState": snap})
}

// roomCode normalizes the :id path parameter. Codes are case-insensitive on
// input.
func roomCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("id")))
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
