// Package room holds the in-memory room table and the state transitions of a
// planning-poker round, from join to reveal and expiry.
package room

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/models"
)

const (
	// DefaultTTL is how long a room may sit idle before the reaper removes it.
	DefaultTTL = 30 * time.Minute
	// DefaultVoteDuration is the voting timer length started with each round.
	DefaultVoteDuration = 5 * time.Minute
	// DefaultDuplicateJoinWindow is the debounce for repeated joins of one session.
	DefaultDuplicateJoinWindow = time.Second
	// MaxNameLength caps room and participant display names, in runes.
	MaxNameLength = 50
	// RecoveredRoomName is used for rooms synthesized by RecoverRoom.
	RecoveredRoomName = "Recovered Room"

	maxCodeAttempts = 16
)

var (
	ErrInvalidRoomName    = errors.New("invalid room name")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Store is the process-local table of live rooms. It is safe for concurrent
// use: the table is guarded by an RWMutex and each room by its own mutex, so
// mutations on one room serialize while different rooms proceed in parallel.
// Lock order is always table before room.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*room

	now          Clock
	ttl          time.Duration
	voteDuration time.Duration
	dupWindow    time.Duration
	policy       Policy
	log          zerolog.Logger
	newCode      func() (string, error)
	newID        func() string
}

// Option configures a Store.
type Option func(*Store)

func WithClock(c Clock) Option { return func(s *Store) { s.now = c } }

func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }

func WithVoteDuration(d time.Duration) Option { return func(s *Store) { s.voteDuration = d } }

func WithDuplicateJoinWindow(d time.Duration) Option { return func(s *Store) { s.dupWindow = d } }

func WithPolicy(p Policy) Option { return func(s *Store) { s.policy = p } }

func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

// WithCodeGenerator overrides room code generation (used to force collisions in tests).
func WithCodeGenerator(fn func() (string, error)) Option { return func(s *Store) { s.newCode = fn } }

func WithIDGenerator(fn func() string) Option { return func(s *Store) { s.newID = fn } }

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		rooms:        make(map[string]*room),
		now:          time.Now,
		ttl:          DefaultTTL,
		voteDuration: DefaultVoteDuration,
		dupWindow:    DefaultDuplicateJoinWindow,
		policy:       AllowAll,
		log:          zerolog.Nop(),
		newCode:      GenerateCode,
		newID:        func() string { return "participant-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		s.policy = AllowAll
	}
	return s
}

// CreateRoom registers a new empty room and returns its code. Colliding codes
// are regenerated.
func (s *Store) CreateRoom(name string) (string, error) {
	name = sanitizeName(name)
	if name == "" {
		return "", fmt.Errorf("room: create: %w", ErrInvalidRoomName)
	}
	now := s.now()
	s.DeleteExpired(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.rooms[code]; taken {
			s.log.Warn().Str("room", code).Msg("room code collision, regenerating")
			continue
		}
		s.rooms[code] = newRoom(code, name, now)
		s.log.Info().Str("room", code).Str("name", name).Int("rooms", len(s.rooms)).Msg("room created")
		return code, nil
	}
	return "", fmt.Errorf("room: create: %w", ErrCodeSpaceExhausted)
}

// RoomExists sweeps expired rooms, then reports whether code is live.
func (s *Store) RoomExists(code string) bool {
	s.DeleteExpired(s.now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok
}

// RecoverRoom synthesizes a placeholder room for a well-formed code that is
// not in the table, e.g. after a process restart. It returns false when the
// room already exists or the code is malformed.
func (s *Store) RecoverRoom(code string) bool {
	if !ValidCode(code) {
		return false
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		return false
	}
	s.rooms[code] = newRoom(code, RecoveredRoomName, now)
	s.log.Info().Str("room", code).Msg("room recovered")
	return true
}

// Snapshot returns a detached copy of the room's current state.
func (s *Store) Snapshot(code string) (*models.RoomState, bool) {
	r := s.get(code)
	if r == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return nil, false
	}
	return r.snapshot(s.now()), true
}

// DeleteExpired removes every room whose last activity is older than the TTL
// and returns how many were removed. Participants are not notified.
func (s *Store) DeleteExpired(now time.Time) int {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for code, r := range s.rooms {
		r.mu.Lock()
		expired := r.lastActivity.Before(cutoff)
		if expired {
			r.deleted = true
		}
		r.mu.Unlock()
		if expired {
			delete(s.rooms, code)
			removed++
			s.log.Info().Str("room", code).Msg("room expired")
		}
	}
	return removed
}

// Len returns the number of rooms in the table, including expired rooms not
// yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Codes returns the codes of all rooms in the table, sorted.
func (s *Store) Codes() []string {
	s.mu.RLock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

func (s *Store) get(code string) *room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// update runs fn with the room locked. An expired voting round is revealed
// first, under the same lock, so fn never sees a round past its deadline. fn
// reports whether it changed state; on success the room's activity timestamp
// is refreshed. Unknown or reaped rooms yield false without calling fn.
func (s *Store) update(code string, fn func(r *room, now time.Time) bool) bool {
	r := s.get(code)
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return false
	}
	now := s.now()
	s.expireRound(r, now)
	if !fn(r, now) {
		return false
	}
	r.touch(now)
	return true
}
