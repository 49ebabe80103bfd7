package room

import (
	"time"

	"github.com/zulandar/estimaite/internal/models"
)

// votingTimer is derived state only: remaining time is computed from start and
// duration on every read, never decremented.
type votingTimer struct {
	start    time.Time
	duration time.Duration
}

func newVotingTimer(now time.Time, d time.Duration) votingTimer {
	return votingTimer{start: now, duration: d}
}

func (t votingTimer) expired(now time.Time) bool {
	return now.Sub(t.start) >= t.duration
}

// remaining returns whole seconds left, floored at zero. Elapsed time is
// truncated to whole seconds before subtracting.
func (t votingTimer) remaining(now time.Time) int {
	elapsed := int(now.Sub(t.start) / time.Second)
	left := int(t.duration/time.Second) - elapsed
	if left < 0 {
		return 0
	}
	return left
}

func (t votingTimer) state(now time.Time) *models.VotingTimerState {
	left := t.remaining(now)
	return &models.VotingTimerState{
		Duration:      int(t.duration / time.Second),
		RemainingTime: left,
		Active:        left > 0,
	}
}

// IsVotingTimerExpired reports whether the room is in a voting round whose
// timer has run out.
func (s *Store) IsVotingTimerExpired(code string) bool {
	r := s.get(code)
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	vs, ok := r.story.(votingState)
	return ok && !r.deleted && vs.timer.expired(s.now())
}

// expireRound reveals r's round once its timer has run out and keeps the
// post-reveal snapshot for AutoRevealIfExpired. r.mu must be held.
func (s *Store) expireRound(r *room, now time.Time) bool {
	vs, ok := r.story.(votingState)
	if !ok || !vs.timer.expired(now) {
		return false
	}
	r.reveal()
	r.autoRevealed = r.snapshot(now)
	r.touch(now)
	return true
}

// AutoRevealIfExpired returns the snapshot of a timer reveal, performing the
// reveal first if the round has just run out. A reveal already applied by an
// earlier mutation is handed out here exactly once, so concurrent callers
// publish it at most once.
func (s *Store) AutoRevealIfExpired(code string) (*models.RoomState, bool) {
	r := s.get(code)
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return nil, false
	}
	s.expireRound(r, s.now())
	snap := r.autoRevealed
	r.autoRevealed = nil
	return snap, snap != nil
}
