package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/estimaite/internal/models"
)

// JoinRequest is an inbound join. SessionID is the opaque token the client
// keeps across reloads; it may be empty for older clients.
type JoinRequest struct {
	Name      string
	SessionID string
}

// JoinResult describes how a join was resolved.
type JoinResult struct {
	Participant models.Participant
	// IsNew is true when a participant record was created. Reconnects and
	// duplicates are not new and must not be announced as joins.
	IsNew bool
	// Duplicate marks a repeat join for the same session inside the debounce
	// window; nothing was changed.
	Duplicate bool
	// Purged counts stale records for the same session that were removed.
	Purged      int
	IsModerator bool
}

// Join resolves an inbound join against the room's participants.
//
// Identity is keyed on the session token only. A matching session is a
// reconnect and is updated in place (name, ready flag, join time); the
// participant keeps their id and any estimate. Without a match a new
// participant is created, even if another participant already uses the same
// display name. Other records carrying the same session are purged. A repeat
// join for the same session within the duplicate window is treated as a
// network retry and returns the existing record untouched.
func (s *Store) Join(code string, req JoinRequest) (JoinResult, bool) {
	name := sanitizeName(req.Name)
	if name == "" {
		return JoinResult{}, false
	}

	var res JoinResult
	ok := s.update(code, func(r *room, now time.Time) bool {
		p := r.bySession(req.SessionID)
		switch {
		case p != nil && now.Sub(p.JoinedAt) < s.dupWindow:
			res.Duplicate = true
		case p != nil:
			p.Name = name
			p.IsReady = false
			p.JoinedAt = now
		default:
			sessionID := req.SessionID
			if sessionID == "" {
				sessionID = "session-" + uuid.NewString()
			}
			p = &models.Participant{
				ID:        s.newID(),
				Name:      name,
				SessionID: sessionID,
				JoinedAt:  now,
			}
			r.addParticipant(p)
			res.IsNew = true
		}

		res.Purged = r.purgeSession(p.SessionID, p.ID)
		res.Participant = p.Clone()
		if v, ok := r.estimates()[p.ID]; ok {
			res.Participant.Estimate = &v
		}
		res.IsModerator = r.moderatorID == p.ID
		return true
	})
	if !ok {
		return JoinResult{}, false
	}

	ev := s.log.Debug().Str("room", code).Str("participant", res.Participant.ID).Str("session", res.Participant.SessionID)
	switch {
	case res.Duplicate:
		ev.Msg("duplicate join ignored")
	case res.IsNew:
		ev.Int("purged", res.Purged).Msg("participant joined")
	default:
		ev.Int("purged", res.Purged).Msg("participant reconnected")
	}
	return res, true
}

// ParticipantBySessionID returns the participant holding sessionID.
func (s *Store) ParticipantBySessionID(code, sessionID string) (models.Participant, bool) {
	r := s.get(code)
	if r == nil || sessionID == "" {
		return models.Participant{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.bySession(sessionID)
	if p == nil {
		return models.Participant{}, false
	}
	return p.Clone(), true
}

// CleanupStaleParticipantsBySession removes participants that carry sessionID
// under an id other than currentID. It reports whether anything was removed.
func (s *Store) CleanupStaleParticipantsBySession(code, sessionID, currentID string) bool {
	if sessionID == "" {
		return false
	}
	return s.update(code, func(r *room, _ time.Time) bool {
		return r.purgeSession(sessionID, currentID) > 0
	})
}
