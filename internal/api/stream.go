package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zulandar/estimaite/internal/notify"
)

const wsWriteWait = 10 * time.Second

// events streams the room's channel as server-sent events. The first event is
// "connected" carrying the current snapshot; a heartbeat follows every
// h.heartbeat while the client stays connected.
func (h *handler) events(c *gin.Context) {
	code := roomCode(c)
	if !h.rooms.Store().RoomExists(code) {
		abortError(c, http.StatusNotFound, "Room not found")
		return
	}

	msgs, unsubscribe := h.hub.Subscribe(notify.ChannelName(code), subscriberBuffer)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	snap, _ := h.rooms.Store().Snapshot(code)
	writeSSE(c.Writer, "connected", gin.H{"roomState": snap})
	c.Writer.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.shutdown:
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			writeSSE(c.Writer, msg.Event, msg.Payload)
			c.Writer.Flush()
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}

// socket streams the room's channel over a WebSocket as notify.Message
// JSON frames. The connection is receive-only: inbound frames are read and
// discarded so that pongs and closes are processed.
func (h *handler) socket(c *gin.Context) {
	code := roomCode(c)
	if !h.rooms.Store().RoomExists(code) {
		abortError(c, http.StatusNotFound, "Room not found")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	msgs, unsubscribe := h.hub.Subscribe(notify.ChannelName(code), subscriberBuffer)
	defer unsubscribe()

	snap, _ := h.rooms.Store().Snapshot(code)
	hello := notify.Message{
		Channel: notify.ChannelName(code),
		Event:   "connected",
		Payload: notify.Payload{RoomState: snap},
		SentAt:  time.Now().UTC(),
	}
	if err := writeJSON(conn, hello); err != nil {
		return
	}

	done := make(chan struct{})
	go readUntilClosed(conn, 2*h.heartbeat, done)

	ping := time.NewTicker(h.heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-h.shutdown:
			closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(wsWriteWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := writeJSON(conn, msg); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// readUntilClosed drains inbound frames until the peer goes away or stops
// answering pings within idle.
func readUntilClosed(conn *websocket.Conn, idle time.Duration, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
