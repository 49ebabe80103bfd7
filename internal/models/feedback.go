package models

import "time"

// Feedback types accepted by the inbox.
const (
	FeedbackBug     = "bug"
	FeedbackFeature = "feature"
	FeedbackGeneral = "general"
)

// Feedback is a user-submitted note about the product. It is the only record
// EstimAIte persists; room state is never written to the database.
type Feedback struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"size:16;not null;index" json:"type"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Email     string    `gorm:"size:254" json:"email,omitempty"`
	UserAgent string    `gorm:"size:512" json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
