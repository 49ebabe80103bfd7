package room

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultReaperSchedule sweeps idle rooms every half hour.
const DefaultReaperSchedule = "@every 30m"

// Reaper periodically deletes rooms idle beyond the store's TTL.
type Reaper struct {
	store *Store
	cron  *cron.Cron
	log   zerolog.Logger
}

// NewReaper schedules sweeps of store on schedule, a standard 5-field cron
// expression or a descriptor such as "@every 30m".
func NewReaper(store *Store, schedule string, logger zerolog.Logger) (*Reaper, error) {
	if schedule == "" {
		schedule = DefaultReaperSchedule
	}
	r := &Reaper{
		store: store,
		cron:  cron.New(),
		log:   logger,
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.RunOnce() }); err != nil {
		return nil, fmt.Errorf("room: reaper schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the schedule in the background.
func (r *Reaper) Start() {
	r.cron.Start()
	r.log.Info().Msg("room reaper started")
}

// Stop halts the schedule and waits for an in-flight sweep, or for ctx.
func (r *Reaper) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce sweeps expired rooms immediately and returns how many were deleted.
func (r *Reaper) RunOnce() int {
	n := r.store.DeleteExpired(r.store.now())
	if n > 0 {
		r.log.Info().Int("deleted", n).Int("remaining", r.store.Len()).Msg("reaped idle rooms")
	}
	return n
}
