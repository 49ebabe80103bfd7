package room

import "github.com/zulandar/estimaite/internal/models"

// Action names a mutating operation subject to the permission policy.
type Action string

const (
	ActionSubmitStory    Action = "submit-story"
	ActionSubmitEstimate Action = "submit-estimate"
	ActionReveal         Action = "reveal-estimates"
	ActionReset          Action = "reset-estimates"
	ActionClear          Action = "clear-story-and-reset"
)

// RoomView is the read-only slice of room state a Policy may inspect.
type RoomView struct {
	ID               string
	ModeratorID      string
	Phase            models.Phase
	ParticipantCount int
}

// Policy decides whether actor may perform action in a room. actor is nil when
// the caller did not identify itself or is not a participant of the room.
type Policy func(action Action, actor *models.Participant, view RoomView) bool

// AllowAll lets anyone holding the room code perform any action.
func AllowAll(Action, *models.Participant, RoomView) bool { return true }

// ModeratorOnly restricts story and round control to the moderator (the
// earliest remaining participant). Any participant may still vote.
func ModeratorOnly(action Action, actor *models.Participant, view RoomView) bool {
	if actor == nil {
		return false
	}
	if action == ActionSubmitEstimate {
		return true
	}
	return actor.ID == view.ModeratorID
}

// PolicyByName maps a configuration value to a Policy.
func PolicyByName(name string) (Policy, bool) {
	switch name {
	case "", "anyone":
		return AllowAll, true
	case "moderator":
		return ModeratorOnly, true
	}
	return nil, false
}
