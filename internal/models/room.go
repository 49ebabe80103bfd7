// Package models defines the read models and records shared across EstimAIte.
package models

// Phase is the story state of a room.
type Phase string

const (
	PhaseEmpty    Phase = "empty"
	PhaseVoting   Phase = "voting"
	PhaseRevealed Phase = "revealed"
)

// RoomInfo is the summary block of a snapshot.
type RoomInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
}

// VotingTimerState is the derived timer view. RemainingTime is recomputed on
// every read and never stored.
type VotingTimerState struct {
	Duration      int  `json:"duration"`
	RemainingTime int  `json:"remainingTime"`
	Active        bool `json:"active"`
}

// RoomState is the externally consumed snapshot of a room. It is a detached
// copy: mutating it has no effect on the store.
type RoomState struct {
	Room         RoomInfo           `json:"room"`
	Phase        Phase              `json:"phase"`
	Participants []Participant      `json:"participants"`
	CurrentStory *Story             `json:"currentStory,omitempty"`
	Estimates    []EstimationResult `json:"estimates"`
	Revealed     bool               `json:"revealed"`
	VotingTimer  *VotingTimerState  `json:"votingTimer,omitempty"`
	ModeratorID  string             `json:"moderatorId,omitempty"`
	Stats        *Stats             `json:"stats,omitempty"`
}

// Participant returns the participant with the given id from the snapshot.
func (s *RoomState) Participant(id string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}
