package engine

import (
	"strings"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/persona"
)

// maxSuggestedActions bounds the follow-up list for any input.
const maxSuggestedActions = 4

// personaSuggestions maps specialist personas to their natural follow-up.
var personaSuggestions = map[string]api.SuggestedAction{
	"vsd": {
		Label:  "Check fault history",
		Prompt: "Show me the recent fault codes for this drive",
	},
	"switchgear": {
		Label:  "Review protection settings",
		Prompt: "Show me the breaker protection settings",
	},
	"transformer": {
		Label:  "Latest oil analysis",
		Prompt: "Show me the latest oil analysis results",
	},
	"motor": {
		Label:  "Vibration report",
		Prompt: "Show me the latest vibration measurements",
	},
	"atex": {
		Label:  "Check certificates",
		Prompt: "Are the ATEX certificates up to date?",
	},
}

// suggestActions derives follow-up suggestions heuristically from the
// tool results and the final text. The list is hard-capped at four.
func (e *Engine) suggestActions(sess *session, finalText string, detected *persona.Persona) []api.SuggestedAction {
	var actions []api.SuggestedAction

	add := func(a api.SuggestedAction) {
		if len(actions) >= maxSuggestedActions {
			return
		}
		for _, existing := range actions {
			if existing.Label == a.Label {
				return
			}
		}
		actions = append(actions, a)
	}

	// A tool result that surfaced a specific equipment record invites
	// opening its file.
	for _, r := range sess.results {
		if !r.Success {
			continue
		}
		if eq, ok := r.Payload["equipment"].(map[string]any); ok {
			if name, ok := eq["name"].(string); ok && name != "" {
				add(api.SuggestedAction{
					Label:  "Open the equipment file",
					Prompt: "Show me the full details for " + name,
				})
				break
			}
		}
	}

	if a, ok := personaSuggestions[detected.Type]; ok {
		add(a)
	}

	// A failed tool invites a retry of the original question.
	for _, u := range sess.toolsUsed {
		if !u.Success {
			add(api.SuggestedAction{
				Label:  "Try that again",
				Prompt: sess.req.Message,
			})
			break
		}
	}

	lowered := strings.ToLower(finalText)
	if strings.Contains(lowered, "maintenance") || strings.Contains(lowered, "entretien") {
		add(api.SuggestedAction{
			Label:  "Maintenance planning",
			Prompt: "What maintenance is due on this equipment?",
		})
	}
	if strings.Contains(lowered, "panne") || strings.Contains(lowered, "fault") || strings.Contains(lowered, "failure") {
		add(api.SuggestedAction{
			Label:  "Fault history",
			Prompt: "Show me the fault history for this equipment",
		})
	}

	add(api.SuggestedAction{
		Label:  "Find equipment",
		Prompt: "Search for equipment in my building",
	})

	return actions
}
