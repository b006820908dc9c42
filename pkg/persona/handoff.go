package persona

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// handoffTemplate is one candidate narration with its selection weight.
// The {name} placeholder is replaced with the incoming persona's display
// name.
type handoffTemplate struct {
	text   string
	weight int
}

// specialistHandoffs is the shared template pool for specialist personas.
var specialistHandoffs = []handoffTemplate{
	{text: "Let me bring in our {name} for this one.", weight: 3},
	{text: "This is a job for the {name}, handing over.", weight: 2},
	{text: "Switching you to the {name}.", weight: 3},
	{text: "Our {name} will take it from here.", weight: 1},
}

// Narrator generates handoff narrations. The wording is chosen by
// weighted random selection; the randomness affects only the cosmetic
// phrasing, never the routing decision. Safe for concurrent use.
type Narrator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNarrator creates a Narrator from the given random source. A nil rng
// gets a time-seeded source; tests inject a fixed seed for deterministic
// wording.
func NewNarrator(rng *rand.Rand) *Narrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Narrator{rng: rng}
}

// Handoff returns the transition narration for a persona change, or ""
// when no narration is due. A narration is produced if and only if the
// detected persona differs from the previous one and is not main.
func (n *Narrator) Handoff(previous, detected *Persona) string {
	if detected == nil || detected.Type == TypeMain {
		return ""
	}
	if previous != nil && previous.Type == detected.Type {
		return ""
	}

	templates := detected.handoffs
	if len(templates) == 0 {
		templates = specialistHandoffs
	}

	tpl := n.pick(templates)
	return strings.ReplaceAll(tpl.text, "{name}", detected.DisplayName)
}

// pick selects a template by weight.
func (n *Narrator) pick(templates []handoffTemplate) handoffTemplate {
	total := 0
	for _, t := range templates {
		total += t.weight
	}
	if total <= 0 {
		return templates[0]
	}

	n.mu.Lock()
	roll := n.rng.Intn(total)
	n.mu.Unlock()

	for _, t := range templates {
		roll -= t.weight
		if roll < 0 {
			return t
		}
	}
	return templates[len(templates)-1]
}
