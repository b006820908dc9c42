package api

import "strings"

// ValidationConfig holds configurable limits for request normalization.
type ValidationConfig struct {
	// MaxMessageChars is the maximum message length in runes. Longer
	// messages are truncated, not rejected.
	MaxMessageChars int

	// HistoryWindow is the number of most-recent history turns kept.
	// Older turns are dropped.
	HistoryWindow int
}

// DefaultValidationConfig returns the limits the service ships with.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessageChars: 10000,
		HistoryWindow:   15,
	}
}

// validRoles is the set of turn roles accepted in conversation history.
var validRoles = map[Role]bool{
	RoleUser:      true,
	RoleAssistant: true,
	RoleTool:      true,
}

// Normalize validates and clamps a ChatRequest in place. It returns an
// APIError only for input that cannot be repaired (an empty message);
// oversize input is clamped rather than rejected so the conversational
// surface never goes silent over a length limit.
func Normalize(req *ChatRequest, cfg ValidationConfig) *APIError {
	if req == nil {
		return NewValidationError("", "request body is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return NewValidationError("message", "message is required")
	}

	if cfg.MaxMessageChars > 0 {
		if r := []rune(req.Message); len(r) > cfg.MaxMessageChars {
			req.Message = string(r[:cfg.MaxMessageChars])
		}
	}

	history := req.ConversationHistory[:0]
	for _, turn := range req.ConversationHistory {
		if turn.Content == "" || !validRoles[turn.Role] {
			continue
		}
		history = append(history, turn)
	}
	if cfg.HistoryWindow > 0 && len(history) > cfg.HistoryWindow {
		history = history[len(history)-cfg.HistoryWindow:]
	}
	req.ConversationHistory = history

	return nil
}
