// Package feedback stores product feedback submitted from the app and relays
// it to the team's chat channel.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/zulandar/estimaite/internal/models"
	"gorm.io/gorm"
)

// MaxMessageLength caps a feedback message, in runes.
const MaxMessageLength = 2000

// DefaultListLimit is used by List when limit is not positive.
const DefaultListLimit = 50

// maxUserAgentLength caps the stored user agent, in runes.
const maxUserAgentLength = 512

var validate = validator.New()

var (
	ErrInvalidType     = errors.New("feedback type must be bug, feature or general")
	ErrEmptyMessage    = errors.New("feedback message is required")
	ErrMessageTooLong  = fmt.Errorf("feedback message exceeds %d characters", MaxMessageLength)
	ErrInvalidEmail    = errors.New("feedback email is malformed")
	errNoStoreProvided = errors.New("feedback: db is required")
)

// Relay forwards stored feedback elsewhere, e.g. a chat channel.
type Relay interface {
	AnnounceFeedback(ctx context.Context, fb models.Feedback) error
}

// Input is an inbound feedback submission.
type Input struct {
	Type      string
	Message   string
	Email     string
	UserAgent string
}

// Service validates, stores and relays feedback.
type Service struct {
	db    *gorm.DB
	relay Relay
	log   zerolog.Logger
}

// NewService creates a Service. relay may be nil.
func NewService(db *gorm.DB, relay Relay, logger zerolog.Logger) (*Service, error) {
	if db == nil {
		return nil, errNoStoreProvided
	}
	return &Service{db: db, relay: relay, log: logger}, nil
}

// Validate normalizes in and reports the first problem with it.
func Validate(in *Input) error {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Message = strings.TrimSpace(in.Message)
	in.Email = strings.TrimSpace(in.Email)

	switch in.Type {
	case models.FeedbackBug, models.FeedbackFeature, models.FeedbackGeneral:
	default:
		return ErrInvalidType
	}
	if in.Message == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(in.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if in.Email != "" {
		if err := validate.Var(in.Email, "email,max=254"); err != nil {
			return ErrInvalidEmail
		}
	}
	in.UserAgent = truncateRunes(strings.TrimSpace(in.UserAgent), maxUserAgentLength)
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Submit validates and stores a submission, then relays it. A relay failure
// is logged; the submission is still stored.
func (s *Service) Submit(ctx context.Context, in Input) (models.Feedback, error) {
	if err := Validate(&in); err != nil {
		return models.Feedback{}, fmt.Errorf("feedback: submit: %w", err)
	}

	fb := models.Feedback{
		Type:      in.Type,
		Message:   in.Message,
		Email:     in.Email,
		UserAgent: in.UserAgent,
	}
	if err := s.db.WithContext(ctx).Create(&fb).Error; err != nil {
		return models.Feedback{}, fmt.Errorf("feedback: store: %w", err)
	}
	s.log.Info().Uint("id", fb.ID).Str("type", fb.Type).Bool("has_email", fb.Email != "").Msg("feedback received")

	if s.relay != nil {
		if err := s.relay.AnnounceFeedback(ctx, fb); err != nil {
			s.log.Warn().Err(err).Uint("id", fb.ID).Msg("feedback relay failed")
		}
	}
	return fb, nil
}

// List returns the most recent submissions, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]models.Feedback, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var out []models.Feedback
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("feedback: list: %w", err)
	}
	return out, nil
}

// IsValidationError reports whether err was caused by bad input rather than
// a storage failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrInvalidEmail)
}
