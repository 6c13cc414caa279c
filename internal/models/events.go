package models

// EventKind discriminates inbound event shapes from the transport.
type EventKind string

const (
	// EventKindCommand is a slash command such as /start or /prueba.
	EventKindCommand EventKind = "command"
	// EventKindText is free text interpreted against the current mode.
	EventKindText EventKind = "text"
	// EventKindButton is an inline button press carrying an action id.
	EventKindButton EventKind = "button"
)

// Event is a single inbound update from the messaging transport.
type Event struct {
	Kind EventKind
	// From is the canonical user identifier (Telegram chat id as decimal string).
	From string
	// Command is the command name without the leading slash, for EventKindCommand.
	Command string
	// Body is the message text, for EventKindText.
	Body string
	// ActionData is the raw callback payload, for EventKindButton.
	ActionData string
}

// Button is a label/action pair rendered as an inline keyboard button.
type Button struct {
	Label string
	Data  string
}
