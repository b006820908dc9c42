package api

// StreamEventType identifies the type of an incremental delivery event.
type StreamEventType string

// Events are emitted in this order on the happy path: status, zero or
// more content deltas, optionally tools (at most one round), more content
// deltas, then complete. An error event terminates the stream early.
const (
	EventStatus   StreamEventType = "status"
	EventContent  StreamEventType = "content"
	EventTools    StreamEventType = "tools"
	EventComplete StreamEventType = "complete"
	EventError    StreamEventType = "error"
)

// StreamEvent is a single event on the incremental delivery transport.
// Only the fields relevant for the event's type are populated.
type StreamEvent struct {
	Type StreamEventType `json:"type"`

	// Message carries the status or error text.
	Message string `json:"message,omitempty"`

	// Delta carries an incremental piece of assistant content.
	Delta string `json:"delta,omitempty"`

	// Results carries the executed tool round for a tools event.
	Results []ToolUse `json:"results,omitempty"`

	// Complete-event payload.
	PersonaType      string            `json:"personaType,omitempty"`
	PersonaName      string            `json:"personaName,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggestedActions,omitempty"`
}

// IsTerminal reports whether the event ends the stream.
func (t StreamEventType) IsTerminal() bool {
	return t == EventComplete || t == EventError
}
