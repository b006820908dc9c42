package api

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is a single entry in the rolling dialogue supplied by the caller.
// The orchestrator never persists turns; the caller owns the history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EquipmentContext describes the piece of equipment the user is currently
// looking at in the client, if any. The orchestrator only reads Type for
// persona routing; the remaining fields are passed through to tools.
type EquipmentContext struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Name     string `json:"name,omitempty"`
	Building string `json:"building,omitempty"`
}

// ChatContext carries optional caller-supplied context for one request.
type ChatContext struct {
	User                string            `json:"user,omitempty"`
	CurrentEquipment    *EquipmentContext `json:"currentEquipmentContext,omitempty"`
	Summary             string            `json:"summary,omitempty"`
	PreviousPersonaType string            `json:"previousPersonaType,omitempty"`
}

// ChatRequest is the inbound request shape for both delivery modes.
type ChatRequest struct {
	Message             string      `json:"message"`
	ConversationHistory []Turn      `json:"conversationHistory,omitempty"`
	Context             ChatContext `json:"context"`
}

// ProviderRole reports which configured provider produced the answer.
type ProviderRole string

const (
	ProviderPrimary   ProviderRole = "primary"
	ProviderSecondary ProviderRole = "secondary"
)

// ToolUse summarizes one executed tool call for the client.
type ToolUse struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

// SuggestedAction is a follow-up the client may offer as a quick reply.
type SuggestedAction struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// ChatResponse is the buffered-mode result.
type ChatResponse struct {
	Message              string            `json:"message"`
	Provider             ProviderRole      `json:"provider"`
	PersonaType          string            `json:"personaType"`
	PersonaName          string            `json:"personaName"`
	ToolsUsed            []ToolUse         `json:"toolsUsed"`
	IterationsUsed       int               `json:"iterationsUsed"`
	FrontendInstructions map[string]any    `json:"frontendInstructions,omitempty"`
	SuggestedActions     []SuggestedAction `json:"suggestedActions,omitempty"`
}
