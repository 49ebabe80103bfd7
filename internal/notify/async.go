package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultQueueSize bounds the number of events waiting for delivery.
const DefaultQueueSize = 256

// ErrQueueFull is returned when an event is dropped because the queue is full.
var ErrQueueFull = errors.New("notify: queue full")

// ErrClosed is returned by Broadcast after Close.
var ErrClosed = errors.New("notify: dispatcher closed")

type job struct {
	channel string
	event   string
	payload Payload
}

// Async hands events to a single worker goroutine that forwards them to next,
// so callers never wait on slow transports. Events are delivered in the order
// they were accepted.
type Async struct {
	next    Dispatcher
	queue   chan job
	log     zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the worker. timeout bounds each forwarded Broadcast; zero
// means no bound.
func NewAsync(next Dispatcher, size int, timeout time.Duration, logger zerolog.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	a := &Async{
		next:    next,
		queue:   make(chan job, size),
		log:     logger,
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Broadcast enqueues the event without blocking.
func (a *Async) Broadcast(_ context.Context, channel, event string, payload Payload) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- job{channel: channel, event: event, payload: payload}:
		return nil
	default:
		a.log.Warn().Str("channel", channel).Str("event", event).Msg("notification queue full, dropping event")
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until queued ones are delivered or
// ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) run() {
	defer close(a.done)
	for j := range a.queue {
		ctx := context.Background()
		var cancel context.CancelFunc
		if a.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
		}
		if err := a.next.Broadcast(ctx, j.channel, j.event, j.payload); err != nil {
			a.log.Warn().Err(err).Str("channel", j.channel).Str("event", j.event).Msg("notification delivery failed")
		}
		if cancel != nil {
			cancel()
		}
	}
}
