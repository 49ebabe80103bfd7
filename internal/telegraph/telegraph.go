package telegraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/models"
	"github.com/zulandar/estimaite/internal/notify"
)

// Announcer posts revealed rounds and feedback submissions to a chat channel.
// It implements notify.Dispatcher so it can sit next to the in-process hub;
// every event other than estimates-revealed is ignored.
type Announcer struct {
	adapter   Adapter
	channelID string
	log       zerolog.Logger

	mu        sync.Mutex
	connected bool
}

// AnnouncerOpts holds parameters for creating a new Announcer.
type AnnouncerOpts struct {
	Adapter   Adapter
	ChannelID string
	Logger    zerolog.Logger
}

// NewAnnouncer creates an Announcer with the given options.
func NewAnnouncer(opts AnnouncerOpts) (*Announcer, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	return &Announcer{
		adapter:   opts.Adapter,
		channelID: opts.ChannelID,
		log:       opts.Logger,
	}, nil
}

// Connect connects the underlying adapter.
func (a *Announcer) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected {
		return nil
	}
	if err := a.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("telegraph: connect: %w", err)
	}
	a.connected = true

	ev := a.log.Info().Str("channel", a.channelID)
	if bui, ok := a.adapter.(BotUserIDer); ok {
		ev = ev.Str("bot_user", bui.BotUserID())
	}
	ev.Msg("telegraph connected")
	return nil
}

// Broadcast implements notify.Dispatcher.
func (a *Announcer) Broadcast(ctx context.Context, _ string, event string, payload notify.Payload) error {
	if event != notify.EventEstimatesRevealed || payload.RoomState == nil {
		return nil
	}
	return a.send(ctx, FormatRound(payload.RoomState, payload.AutoRevealed))
}

// AnnounceFeedback posts a feedback submission.
func (a *Announcer) AnnounceFeedback(ctx context.Context, fb models.Feedback) error {
	return a.send(ctx, FormatFeedback(fb))
}

// Close closes the underlying adapter.
func (a *Announcer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return a.adapter.Close()
}

func (a *Announcer) send(ctx context.Context, evt FormattedEvent) error {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return fmt.Errorf("telegraph: not connected")
	}
	msg := OutboundMessage{
		ChannelID: a.channelID,
		Text:      evt.Title,
		Events:    []FormattedEvent{evt},
	}
	if err := a.adapter.Send(ctx, msg); err != nil {
		return fmt.Errorf("telegraph: send %q: %w", evt.Title, err)
	}
	a.log.Debug().Str("channel", a.channelID).Str("title", evt.Title).Msg("telegraph message sent")
	return nil
}
