package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/models"
)

// DefaultRelayQueueSize bounds the number of submissions waiting to be relayed.
const DefaultRelayQueueSize = 64

var (
	ErrRelayQueueFull = errors.New("feedback: relay queue full")
	ErrRelayClosed    = errors.New("feedback: relay closed")
)

// AsyncRelay forwards feedback to next from a single worker goroutine, so a
// submission never waits on a chat API that is slow or rate limiting.
type AsyncRelay struct {
	next    Relay
	queue   chan models.Feedback
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncRelay starts the worker. timeout bounds each forwarded announcement;
// zero means no bound.
func NewAsyncRelay(next Relay, size int, timeout time.Duration, logger zerolog.Logger) *AsyncRelay {
	if size <= 0 {
		size = DefaultRelayQueueSize
	}
	a := &AsyncRelay{
		next:    next,
		queue:   make(chan models.Feedback, size),
		timeout: timeout,
		log:     logger,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// AnnounceFeedback enqueues fb without blocking.
func (a *AsyncRelay) AnnounceFeedback(_ context.Context, fb models.Feedback) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrRelayClosed
	}
	select {
	case a.queue <- fb:
		return nil
	default:
		return ErrRelayQueueFull
	}
}

// Close stops accepting feedback and waits until queued entries are relayed
// or ctx is done.
func (a *AsyncRelay) Close(ctx context.Context) error {
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

func (a *AsyncRelay) run() {
	defer close(a.done)
	for fb := range a.queue {
		ctx := context.Background()
		var cancel context.CancelFunc
		if a.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
		}
		if err := a.next.AnnounceFeedback(ctx, fb); err != nil {
			a.log.Warn().Err(err).Uint("id", fb.ID).Msg("feedback relay failed")
		}
		if cancel != nil {
			cancel()
		}
	}
}
