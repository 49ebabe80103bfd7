package telegraph

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zulandar/estimaite/internal/models"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
)

// maxFeedbackPreview caps the feedback text quoted in chat.
const maxFeedbackPreview = 300

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	default:
		return ColorInfo
	}
}

// formatEstimate renders a card value; the unknown sentinel shows as "?".
func formatEstimate(v float64) string {
	if v == models.EstimateUnknown {
		return "?"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatRound summarizes a revealed round. A round where every known vote
// agrees is reported as a success, a spread as a warning.
func FormatRound(state *models.RoomState, autoRevealed bool) FormattedEvent {
	title := "Estimates revealed"
	if state.CurrentStory != nil {
		title += ": " + state.CurrentStory.Title
	}

	var body []string
	body = append(body, fmt.Sprintf("Room %s (%s)", state.Room.Name, state.Room.ID))
	if autoRevealed {
		body = append(body, "Voting timer expired")
	}
	votes := make([]string, 0, len(state.Estimates))
	for _, e := range state.Estimates {
		votes = append(votes, fmt.Sprintf("%s: %s", e.ParticipantName, formatEstimate(e.Estimate)))
	}
	if len(votes) > 0 {
		body = append(body, strings.Join(votes, ", "))
	} else {
		body = append(body, "No votes were cast")
	}

	severity := "info"
	fields := []Field{
		{Name: "Votes", Value: strconv.Itoa(len(state.Estimates)), Short: true},
	}
	if st := state.Stats; st != nil {
		if st.Consensus {
			severity = "success"
		} else {
			severity = "warning"
		}
		fields = append(fields,
			Field{Name: "Average", Value: strconv.FormatFloat(st.Average, 'f', -1, 64), Short: true},
			Field{Name: "Median", Value: formatEstimate(st.Median), Short: true},
			Field{Name: "Range", Value: formatEstimate(st.Min) + " to " + formatEstimate(st.Max), Short: true},
			Field{Name: "Consensus", Value: strconv.FormatBool(st.Consensus), Short: true},
		)
		if st.Unknown > 0 {
			fields = append(fields, Field{Name: "Unsure", Value: strconv.Itoa(st.Unknown), Short: true})
		}
	}

	return FormattedEvent{
		Title:    title,
		Body:     strings.Join(body, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

// FormatFeedback formats a feedback submission for the team channel.
func FormatFeedback(fb models.Feedback) FormattedEvent {
	severity := "info"
	if fb.Type == models.FeedbackBug {
		severity = "warning"
	}

	msg := fb.Message
	if utf8.RuneCountInString(msg) > maxFeedbackPreview {
		msg = string([]rune(msg)[:maxFeedbackPreview]) + "…"
	}

	fields := []Field{{Name: "Type", Value: fb.Type, Short: true}}
	if fb.Email != "" {
		fields = append(fields, Field{Name: "Email", Value: fb.Email, Short: true})
	}
	if fb.ID != 0 {
		fields = append(fields, Field{Name: "ID", Value: strconv.FormatUint(uint64(fb.ID), 10), Short: true})
	}

	return FormattedEvent{
		Title:    fmt.Sprintf("New %s feedback", fb.Type),
		Body:     msg,
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}
