// Package notify carries post-mutation room snapshots to whoever is listening:
// in-process stream subscribers and outbound chat announcers. Delivery is
// at-most-once and never blocks the mutation that produced the event.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/zulandar/estimaite/internal/models"
)

// Event names, one per state-changing room operation.
const (
	EventParticipantJoined  = "participant-joined"
	EventParticipantLeft    = "participant-left"
	EventParticipantUpdated = "participant-updated"
	EventStorySubmitted     = "story-submitted"
	EventEstimateSubmitted  = "estimate-submitted"
	EventEstimatesRevealed  = "estimates-revealed"
	EventEstimatesReset     = "estimates-reset"
	EventRoomStateUpdated   = "room-state-updated"
)

// ChannelName returns the room-scoped channel for a room code.
func ChannelName(code string) string {
	return "room-" + code
}

// Payload is the body of every room event. RoomState is always set; the other
// fields depend on the event.
type Payload struct {
	RoomState     *models.RoomState   `json:"roomState"`
	Participant   *models.Participant `json:"participant,omitempty"`
	ParticipantID string              `json:"participantId,omitempty"`
	Story         *models.Story       `json:"story,omitempty"`
	AutoRevealed  bool                `json:"autoRevealed,omitempty"`
}

// Message is one delivered event.
type Message struct {
	Channel string    `json:"channel"`
	Event   string    `json:"event"`
	Payload Payload   `json:"payload"`
	SentAt  time.Time `json:"sentAt"`
}

// Dispatcher publishes an event to every subscriber of channel.
type Dispatcher interface {
	Broadcast(ctx context.Context, channel, event string, payload Payload) error
}

// Discard is a Dispatcher that drops everything.
var Discard Dispatcher = discard{}

type discard struct{}

func (discard) Broadcast(context.Context, string, string, Payload) error { return nil }

// Multi fans an event out to several dispatchers. Every dispatcher is tried;
// the errors are joined.
type Multi []Dispatcher

func (m Multi) Broadcast(ctx context.Context, channel, event string, payload Payload) error {
	var errs []error
	for _, d := range m {
		if err := d.Broadcast(ctx, channel, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
