// Package telegraph posts EstimAIte activity to chat platforms (Slack, Discord).
package telegraph

import "context"

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter owns the connection to a single chat platform and delivers
// outbound messages to it.
type Adapter interface {
	// Connect verifies credentials and prepares the adapter for Send.
	Connect(ctx context.Context) error

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close releases the platform connection.
	Close() error
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string           // target channel (empty uses the adapter default)
	Text      string           // message text (platform-native formatting)
	Events    []FormattedEvent // structured event attachments
}

// FormattedEvent represents an EstimAIte event formatted for display in chat.
type FormattedEvent struct {
	Title    string  // event headline (e.g. "Estimates revealed: Login flow")
	Body     string  // detail text
	Severity string  // "info", "warning", "success"
	Color    string  // sidebar color hint (e.g. "#36a64f" for success)
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID once connected.
type BotUserIDer interface {
	BotUserID() string
}
