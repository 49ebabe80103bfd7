package models

import "time"

// Participant is one human's membership record within a room.
type Participant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SessionID string    `json:"sessionId,omitempty"`
	IsReady   bool      `json:"isReady"`
	Estimate  *float64  `json:"estimate,omitempty"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Clone returns a copy that does not share the estimate pointer.
func (p Participant) Clone() Participant {
	if p.Estimate != nil {
		v := *p.Estimate
		p.Estimate = &v
	}
	return p
}
