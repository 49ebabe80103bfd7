package notify

import (
	"context"
	"sync"
	"time"
)

// DefaultSubscriberBuffer is the per-subscriber queue depth.
const DefaultSubscriberBuffer = 16

// Hub is an in-process pub/sub keyed by channel. A subscriber whose queue is
// full misses messages rather than stalling the publisher.
type Hub struct {
	mu       sync.Mutex
	channels map[string]map[chan Message]struct{}
	dropped  int
	now      func() time.Time
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[chan Message]struct{}),
		now:      time.Now,
	}
}

// Subscribe registers a listener on channel. The returned func unsubscribes
// and closes the message channel; it is safe to call more than once.
func (h *Hub) Subscribe(channel string, buffer int) (<-chan Message, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Message, buffer)

	h.mu.Lock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[chan Message]struct{})
		h.channels[channel] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.channels[channel]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.channels, channel)
				}
			}
			close(ch)
		})
	}
}

// Broadcast delivers the event to every current subscriber of channel.
func (h *Hub) Broadcast(_ context.Context, channel, event string, payload Payload) error {
	msg := Message{Channel: channel, Event: event, Payload: payload, SentAt: h.now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.channels[channel] {
		select {
		case ch <- msg:
		default:
			h.dropped++
		}
	}
	return nil
}

// Subscribers returns the number of listeners on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channel])
}

// Dropped returns how many messages were discarded because a subscriber was full.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
