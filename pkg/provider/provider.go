package provider

import (
	"context"

	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// Provider abstracts an LLM inference backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "mistral").
	Name() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// Chat performs non-streaming inference.
	Chat(ctx context.Context, req *Request) (*Response, error)

	// Stream performs streaming inference. The returned channel receives
	// Event values and is closed by the provider when the stream
	// completes or errors.
	Stream(ctx context.Context, req *Request) (<-chan Event, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Capabilities declares what features the backend supports. The failover
// controller uses ToolCalling to decide whether a secondary provider can
// continue the tool-call loop or must finish with plain text.
type Capabilities struct {
	Streaming   bool
	ToolCalling bool
}

// Message is one entry in the provider's conversation format.
type Message struct {
	Role       string       `json:"role"`
	Content    string       `json:"content"`
	ToolCalls  []tools.Call `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
}

// Request is the backend-facing request: the conversation so far and the
// declared tool catalog. A nil Tools slice means plain text completion.
type Request struct {
	Messages []Message
	Tools    []tools.Definition
}

// Response is the backend's complete non-streaming answer.
type Response struct {
	Content   string
	ToolCalls []tools.Call
}

// EventType classifies a streaming event from the backend.
type EventType int

const (
	EventTextDelta   EventType = iota // Incremental text content
	EventToolCall                     // A fully assembled tool call
	EventDone                         // Stream finished
	EventStreamError                  // Stream error
)

// Event is a single streaming event from the backend.
type Event struct {
	Type     EventType
	Delta    string
	ToolCall *tools.Call
	Err      error
}
