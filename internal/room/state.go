package room

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/zulandar/estimaite/internal/models"
)

// storyState is the tagged story state of a room. Each variant carries only
// the fields valid in that phase.
type storyState interface {
	phase() models.Phase
}

type emptyState struct{}

type votingState struct {
	story     *models.Story
	estimates map[string]float64
	timer     votingTimer
}

type revealedState struct {
	story     *models.Story
	estimates map[string]float64
}

func (emptyState) phase() models.Phase    { return models.PhaseEmpty }
func (votingState) phase() models.Phase   { return models.PhaseVoting }
func (revealedState) phase() models.Phase { return models.PhaseRevealed }

// room is the mutable record behind a room code. All fields are guarded by mu.
type room struct {
	mu           sync.Mutex
	id           string
	name         string
	createdAt    time.Time
	lastActivity time.Time
	participants map[string]*models.Participant
	order        []string // participant ids in join order
	moderatorID  string
	story        storyState
	// autoRevealed holds the snapshot of a timer reveal not yet handed to
	// AutoRevealIfExpired.
	autoRevealed *models.RoomState
	deleted      bool
}

func newRoom(id, name string, now time.Time) *room {
	return &room{
		id:           id,
		name:         name,
		createdAt:    now,
		lastActivity: now,
		participants: make(map[string]*models.Participant),
		story:        emptyState{},
	}
}

func (r *room) touch(now time.Time) {
	r.lastActivity = now
}

// estimates returns the live estimate map of the current round, or nil when
// no story is active.
func (r *room) estimates() map[string]float64 {
	switch s := r.story.(type) {
	case votingState:
		return s.estimates
	case revealedState:
		return s.estimates
	}
	return nil
}

func (r *room) currentStory() *models.Story {
	switch s := r.story.(type) {
	case votingState:
		return s.story
	case revealedState:
		return s.story
	}
	return nil
}

func (r *room) addParticipant(p *models.Participant) {
	if len(r.participants) == 0 {
		r.moderatorID = p.ID
	}
	r.participants[p.ID] = p
	r.order = append(r.order, p.ID)
}

// removeParticipant drops the participant and their estimate, and hands the
// moderator slot to the earliest remaining participant.
func (r *room) removeParticipant(id string) bool {
	if _, ok := r.participants[id]; !ok {
		return false
	}
	delete(r.participants, id)
	if est := r.estimates(); est != nil {
		delete(est, id)
	}
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.moderatorID == id {
		r.moderatorID = ""
		if len(r.order) > 0 {
			r.moderatorID = r.order[0]
		}
	}
	return true
}

// purgeSession removes every participant holding sessionID except keepID.
func (r *room) purgeSession(sessionID, keepID string) int {
	if sessionID == "" {
		return 0
	}
	var stale []string
	for _, id := range r.order {
		p := r.participants[id]
		if p.SessionID == sessionID && id != keepID {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		r.removeParticipant(id)
	}
	return len(stale)
}

func (r *room) bySession(sessionID string) *models.Participant {
	if sessionID == "" {
		return nil
	}
	for _, id := range r.order {
		if p := r.participants[id]; p.SessionID == sessionID {
			return p
		}
	}
	return nil
}

func (r *room) view() RoomView {
	return RoomView{
		ID:               r.id,
		ModeratorID:      r.moderatorID,
		Phase:            r.story.phase(),
		ParticipantCount: len(r.participants),
	}
}

// snapshot projects the room into a detached read model.
func (r *room) snapshot(now time.Time) *models.RoomState {
	est := r.estimates()
	state := &models.RoomState{
		Room: models.RoomInfo{
			ID:               r.id,
			Name:             r.name,
			ParticipantCount: len(r.participants),
		},
		Phase:        r.story.phase(),
		Participants: make([]models.Participant, 0, len(r.order)),
		Estimates:    []models.EstimationResult{},
		CurrentStory: r.currentStory().Clone(),
		ModeratorID:  r.moderatorID,
	}

	for _, id := range r.order {
		p := r.participants[id].Clone()
		p.Estimate = nil
		if v, ok := est[id]; ok {
			p.Estimate = &v
			state.Estimates = append(state.Estimates, models.EstimationResult{
				ParticipantID:   id,
				ParticipantName: p.Name,
				Estimate:        v,
			})
		}
		state.Participants = append(state.Participants, p)
	}

	switch s := r.story.(type) {
	case votingState:
		state.VotingTimer = s.timer.state(now)
	case revealedState:
		state.Revealed = true
		state.Stats = models.ComputeStats(state.Estimates)
	}
	return state
}

// sanitizeName strips angle brackets and caps the trimmed length.
func sanitizeName(name string) string {
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	return name
}
