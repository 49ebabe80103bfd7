package room

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/models"
	"github.com/zulandar/estimaite/internal/notify"
)

// Service wraps a Store with the per-action protocol callers follow: mutate
// (the store reveals an expired round first, under the same lock), publish
// that automatic reveal, then publish the action's snapshot. Publishing
// happens after the room lock is released and its failure never undoes the
// mutation.
type Service struct {
	store    *Store
	dispatch notify.Dispatcher
	log      zerolog.Logger
}

// NewService creates a Service. A nil dispatcher discards events.
func NewService(store *Store, dispatcher notify.Dispatcher, logger zerolog.Logger) *Service {
	if dispatcher == nil {
		dispatcher = notify.Discard
	}
	return &Service{store: store, dispatch: dispatcher, log: logger}
}

// Store returns the underlying room table.
func (s *Service) Store() *Store { return s.store }

// Resolve reports whether code names a live room, recovering a well-formed
// code that went missing. recovered is true when a placeholder was created.
func (s *Service) Resolve(code string) (found, recovered bool) {
	if s.store.RoomExists(code) {
		return true, false
	}
	if s.store.RecoverRoom(code) {
		return true, true
	}
	return false, false
}

// CheckTimer announces a timer reveal as automatic, revealing the round first
// if its timer just ran out. Every action calls it after its mutation so the
// reveal is published ahead of the action's own event.
func (s *Service) CheckTimer(ctx context.Context, code string) bool {
	snap, ok := s.store.AutoRevealIfExpired(code)
	if !ok {
		return false
	}
	s.log.Info().Str("room", code).Msg("voting timer expired, estimates auto-revealed")
	s.publish(ctx, code, notify.EventEstimatesRevealed, notify.Payload{RoomState: snap, AutoRevealed: true})
	return true
}

// Join resolves the join and announces genuinely new participants only.
func (s *Service) Join(ctx context.Context, code string, req JoinRequest) (JoinResult, bool) {
	res, ok := s.store.Join(code, req)
	s.CheckTimer(ctx, code)
	if !ok {
		return res, false
	}
	if res.IsNew {
		p := res.Participant
		s.publishSnapshot(ctx, code, notify.EventParticipantJoined, notify.Payload{Participant: &p})
	}
	return res, true
}

// Leave removes a participant.
func (s *Service) Leave(ctx context.Context, code, participantID string) bool {
	ok := s.store.RemoveParticipant(code, participantID)
	s.CheckTimer(ctx, code)
	if !ok {
		return false
	}
	s.publishSnapshot(ctx, code, notify.EventParticipantLeft, notify.Payload{ParticipantID: participantID})
	return true
}

// SubmitStory starts a new round on story.
func (s *Service) SubmitStory(ctx context.Context, code, actorID string, story models.Story) bool {
	ok := s.store.SubmitStory(code, actorID, story)
	s.CheckTimer(ctx, code)
	if !ok {
		return false
	}
	s.publishSnapshot(ctx, code, notify.EventStorySubmitted, notify.Payload{Story: story.Clone()})
	return true
}

// SubmitEstimate records a vote.
func (s *Service) SubmitEstimate(ctx context.Context, code, participantID string, value float64) bool {
	ok := s.store.SubmitEstimate(code, participantID, value)
	s.CheckTimer(ctx, code)
	if !ok {
		return false
	}
	s.publishSnapshot(ctx, code, notify.EventEstimateSubmitted, notify.Payload{ParticipantID: participantID})
	return true
}

// Reveal exposes the round's estimates.
func (s *Service) Reveal(ctx context.Context, code, actorID string) bool {
	ok := s.store.RevealEstimates(code, actorID)
	s.CheckTimer(ctx, code)
	if !ok {
		return false
	}
	s.publishSnapshot(ctx, code, notify.EventEstimatesRevealed, notify.Payload{})
	return true
}

// Reset starts a new round on the same story.
func (s *Service) Reset(ctx context.Context, code, actorID string) bool {
	ok := s.store.ResetEstimates(code, actorID)
	s.CheckTimer(ctx, code)
	if !ok {
		return false
	}
	s.publishSnapshot(ctx, code, notify.EventEstimatesReset, notify.Payload{})
	return true
}

// Clear drops the story and returns the room to the empty state.
func (s *Service) Clear(ctx context.Context, code, actorID string) bool {
	ok := s.store.ClearStoryAndReset(code, actorID)
	s.CheckTimer(ctx, code)
	if !ok {
		return false
	}
	s.publishSnapshot(ctx, code, notify.EventRoomStateUpdated, notify.Payload{})
	return true
}

// SetReady toggles a participant's ready flag.
func (s *Service) SetReady(ctx context.Context, code, participantID string, ready bool) bool {
	ok := s.store.SetReady(code, participantID, ready)
	s.CheckTimer(ctx, code)
	if !ok {
		return false
	}
	s.publishSnapshot(ctx, code, notify.EventParticipantUpdated, notify.Payload{ParticipantID: participantID})
	return true
}

func (s *Service) publishSnapshot(ctx context.Context, code, event string, payload notify.Payload) {
	snap, ok := s.store.Snapshot(code)
	if !ok {
		return
	}
	payload.RoomState = snap
	s.publish(ctx, code, event, payload)
}

func (s *Service) publish(ctx context.Context, code, event string, payload notify.Payload) {
	if err := s.dispatch.Broadcast(ctx, notify.ChannelName(code), event, payload); err != nil {
		s.log.Warn().Err(err).Str("room", code).Str("event", event).Msg("broadcast failed")
	}
}
