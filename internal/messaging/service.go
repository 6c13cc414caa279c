// Package messaging provides message delivery abstractions and the
// Telegram-backed implementation used in production.
package messaging

import (
	"context"

	"github.com/calcmentor/CalcMentor/internal/models"
)

// Service defines a pluggable message delivery abstraction.
// It supports sending messages and provides a channel of inbound events
// (commands, free text, button presses).
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	// Returns the canonicalized recipient and an error if validation fails.
	// This allows each service to implement its own recipient validation rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a plain text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// SendMessageWithButtons sends a message with an inline button set.
	SendMessageWithButtons(ctx context.Context, to string, body string, buttons []models.Button) error

	// SendTyping shows a typing indicator to the recipient. Failures are
	// cosmetic and implementations may swallow them.
	SendTyping(ctx context.Context, to string) error

	// Start begins any background processing (e.g., polling for updates).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Events returns a channel of incoming user events.
	Events() <-chan models.Event
}
