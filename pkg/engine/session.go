package engine

import (
	"fmt"
	"strings"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/persona"
	"github.com/dp287517/electrohub-assistant/pkg/provider"
	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

const defaultSystemPrompt = "You are the ElectroHub assistant for industrial " +
	"electrical equipment maintenance. Answer questions about the site's " +
	"equipment fleet (drives, switchgear, transformers, motors, ATEX zones) " +
	"using the available tools. Be concise and factual. Users may write in " +
	"French or English; answer in the language of the question."

// session is the request-scoped orchestration state. It is created per
// request and discarded after the response is produced; there is no
// cross-request identity.
type session struct {
	req *api.ChatRequest

	// messages is the rolling conversation sent to the provider.
	messages []provider.Message

	// iterations counts executed tool rounds.
	iterations int

	// toolsUsed records executed calls in execution order.
	toolsUsed []api.ToolUse

	// results accumulates every tool result for persona routing and
	// follow-up suggestions.
	results []tools.Result

	// instructions is the merged frontend instruction set. Later
	// iterations overwrite same-key entries from earlier ones.
	instructions map[string]any
}

// newSession builds the session and its initial provider conversation:
// system prompt, bounded history, then the user message.
func newSession(req *api.ChatRequest, cfg Config, active *persona.Persona) *session {
	s := &session{
		req:          req,
		instructions: make(map[string]any),
	}

	s.messages = append(s.messages, provider.Message{
		Role:    "system",
		Content: buildSystemPrompt(cfg, req.Context, active),
	})
	for _, turn := range req.ConversationHistory {
		s.messages = append(s.messages, provider.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	s.messages = append(s.messages, provider.Message{
		Role:    "user",
		Content: req.Message,
	})

	return s
}

// appendToolRound records one executed tool round in the conversation:
// the assistant's tool-call message first, then one tool-role turn per
// result, tagged by call ID, in the order the tools were requested.
func (s *session) appendToolRound(calls []tools.Call, results []tools.Result) {
	s.messages = append(s.messages, provider.Message{
		Role:      "assistant",
		ToolCalls: calls,
	})
	for i := range results {
		r := &results[i]
		s.messages = append(s.messages, provider.Message{
			Role:       "tool",
			Content:    r.Content(),
			ToolCallID: r.CallID,
		})

		s.toolsUsed = append(s.toolsUsed, api.ToolUse{Name: r.Name, Success: r.Success})
		s.results = append(s.results, *r)
		s.mergeInstructions(r.FrontendInstruction)
	}
	s.iterations++
}

// mergeInstructions folds one result's frontend instruction into the
// session set. Last write wins per key.
func (s *session) mergeInstructions(instruction map[string]any) {
	for k, v := range instruction {
		s.instructions[k] = v
	}
}

// buildSystemPrompt assembles the system prompt from the configured base,
// the caller context, and the active persona.
func buildSystemPrompt(cfg Config, chatCtx api.ChatContext, active *persona.Persona) string {
	var b strings.Builder
	b.WriteString(cfg.SystemPrompt)

	if active != nil && active.Type != persona.TypeMain {
		fmt.Fprintf(&b, "\n\nYou are currently acting as the %s.", active.DisplayName)
	}
	if eq := chatCtx.CurrentEquipment; eq != nil {
		fmt.Fprintf(&b, "\n\nThe user is currently viewing equipment %q (type: %s",
			eq.Name, eq.Type)
		if eq.Building != "" {
			fmt.Fprintf(&b, ", building: %s", eq.Building)
		}
		b.WriteString(").")
	}
	if chatCtx.Summary != "" {
		fmt.Fprintf(&b, "\n\nConversation summary so far: %s", chatCtx.Summary)
	}

	return b.String()
}
