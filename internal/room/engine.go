package room

import (
	"strings"
	"time"

	"github.com/zulandar/estimaite/internal/models"
)

// AddParticipant inserts p, or updates the participant with the same id in
// place. A missing id is generated. Any other participant holding the same
// session identity is removed so a session maps to one live participant.
func (s *Store) AddParticipant(code string, p models.Participant) bool {
	p.Name = sanitizeName(p.Name)
	if p.Name == "" {
		return false
	}
	return s.update(code, func(r *room, now time.Time) bool {
		if p.ID == "" {
			p.ID = s.newID()
		}
		if p.JoinedAt.IsZero() {
			p.JoinedAt = now
		}
		p.Estimate = nil
		if existing, ok := r.participants[p.ID]; ok {
			*existing = p
		} else {
			added := p
			r.addParticipant(&added)
		}
		r.purgeSession(p.SessionID, p.ID)
		return true
	})
}

// RemoveParticipant drops a participant and their estimate. If they held the
// moderator slot it passes to the earliest remaining participant.
func (s *Store) RemoveParticipant(code, participantID string) bool {
	return s.update(code, func(r *room, _ time.Time) bool {
		return r.removeParticipant(participantID)
	})
}

// SubmitStory replaces the current story and starts a fresh round with a new
// voting timer.
func (s *Store) SubmitStory(code, actorID string, story models.Story) bool {
	story.Title = strings.TrimSpace(story.Title)
	if story.Title == "" {
		return false
	}
	return s.update(code, func(r *room, now time.Time) bool {
		if !s.allowed(r, ActionSubmitStory, actorID) {
			return false
		}
		r.story = votingState{
			story:     story.Clone(),
			estimates: make(map[string]float64),
			timer:     newVotingTimer(now, s.voteDuration),
		}
		return true
	})
}

// SubmitEstimate records value as the participant's vote for the current
// round; the last write wins. It is rejected unless a round is open, the
// participant is in the room and value is a deck card.
func (s *Store) SubmitEstimate(code, participantID string, value float64) bool {
	if !models.ValidEstimate(value) {
		return false
	}
	return s.update(code, func(r *room, _ time.Time) bool {
		vs, ok := r.story.(votingState)
		if !ok {
			return false
		}
		if _, member := r.participants[participantID]; !member {
			return false
		}
		if !s.allowed(r, ActionSubmitEstimate, participantID) {
			return false
		}
		vs.estimates[participantID] = value
		return true
	})
}

// RevealEstimates exposes the round's estimates and stops the timer. Revealing
// an already revealed room succeeds without change; a room with no story
// cannot be revealed.
func (s *Store) RevealEstimates(code, actorID string) bool {
	return s.update(code, func(r *room, _ time.Time) bool {
		if !s.allowed(r, ActionReveal, actorID) {
			return false
		}
		return r.reveal()
	})
}

// ResetEstimates starts a new round on the same story: estimates are cleared,
// the room is unrevealed, and the timer restarts. On an empty room it only
// refreshes activity.
func (s *Store) ResetEstimates(code, actorID string) bool {
	return s.update(code, func(r *room, now time.Time) bool {
		if !s.allowed(r, ActionReset, actorID) {
			return false
		}
		if story := r.currentStory(); story != nil {
			r.story = votingState{
				story:     story,
				estimates: make(map[string]float64),
				timer:     newVotingTimer(now, s.voteDuration),
			}
		}
		return true
	})
}

// ClearStoryAndReset returns the room to the empty state.
func (s *Store) ClearStoryAndReset(code, actorID string) bool {
	return s.update(code, func(r *room, _ time.Time) bool {
		if !s.allowed(r, ActionClear, actorID) {
			return false
		}
		r.story = emptyState{}
		return true
	})
}

// SetReady toggles a participant's ready flag.
func (s *Store) SetReady(code, participantID string, ready bool) bool {
	return s.update(code, func(r *room, _ time.Time) bool {
		p, ok := r.participants[participantID]
		if !ok {
			return false
		}
		p.IsReady = ready
		return true
	})
}

// Allowed reports whether actorID may perform action in the room under the
// configured policy. Unknown rooms are never allowed.
func (s *Store) Allowed(code string, action Action, actorID string) bool {
	r := s.get(code)
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return s.allowed(r, action, actorID)
}

func (s *Store) allowed(r *room, action Action, actorID string) bool {
	var actor *models.Participant
	if p, ok := r.participants[actorID]; ok {
		cp := p.Clone()
		actor = &cp
	}
	return s.policy(action, actor, r.view())
}

// reveal moves a voting round to revealed. Caller holds r.mu.
func (r *room) reveal() bool {
	switch st := r.story.(type) {
	case votingState:
		r.story = revealedState{story: st.story, estimates: st.estimates}
		return true
	case revealedState:
		return true
	}
	return false
}
