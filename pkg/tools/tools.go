package tools

import (
	"context"
	"encoding/json"
)

// Call represents a provider's request to invoke a tool.
type Call struct {
	// ID is the call identifier assigned by the provider, unique within
	// a turn (e.g., "call_abc123").
	ID string

	// Name is the declared tool name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// Definition declares a tool to the provider: its name and a JSON Schema
// for its parameters.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Outcome is what a handler returns from one invocation.
type Outcome struct {
	// Success reports whether the tool did what was asked. A false value
	// is still a valid outcome; the provider is expected to reason about
	// partial failures.
	Success bool `json:"success"`

	// Payload carries the domain result (equipment records, search hits).
	Payload map[string]any `json:"payload,omitempty"`

	// FrontendInstruction optionally tells the client to do something
	// (open a view, highlight a record). Instructions from later loop
	// iterations overwrite same-key instructions from earlier ones.
	FrontendInstruction map[string]any `json:"frontendInstruction,omitempty"`
}

// Handler executes a single declared tool.
type Handler interface {
	// Definition returns the tool's declared name and parameter schema.
	Definition() Definition

	// Invoke runs the tool. A returned error is captured by the caller
	// as a failed result; it never aborts the exchange.
	Invoke(ctx context.Context, args json.RawMessage) (*Outcome, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	Def Definition
	Fn  func(ctx context.Context, args json.RawMessage) (*Outcome, error)
}

// Definition implements Handler.
func (h HandlerFunc) Definition() Definition { return h.Def }

// Invoke implements Handler.
func (h HandlerFunc) Invoke(ctx context.Context, args json.RawMessage) (*Outcome, error) {
	return h.Fn(ctx, args)
}

// Result correlates a handler outcome with its originating call.
// Exactly one Result exists per Call, matched by CallID.
type Result struct {
	CallID              string         `json:"callId"`
	Name                string         `json:"name"`
	Success             bool           `json:"success"`
	Payload             map[string]any `json:"payload,omitempty"`
	Error               string         `json:"error,omitempty"`
	FrontendInstruction map[string]any `json:"-"`
}

// Content renders the result as the JSON string fed back to the provider
// as a tool-role turn.
func (r *Result) Content() string {
	body := map[string]any{"success": r.Success}
	for k, v := range r.Payload {
		if k == "success" {
			continue
		}
		body[k] = v
	}
	if r.Error != "" {
		body["error"] = r.Error
	}
	data, err := json.Marshal(body)
	if err != nil {
		return `{"success":false,"error":"unserializable tool result"}`
	}
	return string(data)
}
