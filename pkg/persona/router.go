package persona

import (
	"strings"

	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// returnCueMaxLen is the message length bound under which return-to-main
// cues are honored.
const returnCueMaxLen = 50

// Detect selects the active persona type for this turn. It is a pure
// function of its four inputs and is evaluated in strict priority order,
// first match wins:
//
//  1. The equipment context type maps to a persona.
//  2. A tool result carries an equipment type that maps to a persona.
//  3. An executed tool name intersects a persona's tool affinities.
//  4. The lower-cased message contains a persona keyword (personas
//     checked in declared order).
//  5. A non-main previous persona is retained, unless a short message
//     carries a return-to-main cue.
//  6. The main persona.
func (c *Catalog) Detect(message string, results []tools.Result, previousType string, equipmentType string) string {
	if equipmentType != "" {
		if p := c.byEquipmentType(equipmentType); p != nil {
			return p.Type
		}
	}

	for _, r := range results {
		if et := equipmentTypeOf(r.Payload); et != "" {
			if p := c.byEquipmentType(et); p != nil {
				return p.Type
			}
		}
	}

	for _, r := range results {
		if p := c.byToolAffinity(r.Name); p != nil {
			return p.Type
		}
	}

	lowered := strings.ToLower(message)
	for i := range c.personas {
		p := &c.personas[i]
		for _, kw := range p.Keywords {
			if strings.Contains(lowered, kw) {
				return p.Type
			}
		}
	}

	if previousType != "" && previousType != TypeMain {
		if _, known := c.byType[previousType]; known && !isReturnCue(lowered, message) {
			return previousType
		}
	}

	return TypeMain
}

// byEquipmentType returns the first persona whose equipment affinities
// contain the given type.
func (c *Catalog) byEquipmentType(equipmentType string) *Persona {
	et := strings.ToLower(equipmentType)
	for i := range c.personas {
		for _, t := range c.personas[i].EquipmentTypes {
			if t == et {
				return &c.personas[i]
			}
		}
	}
	return nil
}

// byToolAffinity returns the first persona declaring the tool name.
func (c *Catalog) byToolAffinity(toolName string) *Persona {
	for i := range c.personas {
		for _, t := range c.personas[i].ToolAffinities {
			if t == toolName {
				return &c.personas[i]
			}
		}
	}
	return nil
}

// isReturnCue reports whether a short message asks to leave the
// specialist. Cues in long messages are ignored.
func isReturnCue(lowered, original string) bool {
	if len([]rune(original)) >= returnCueMaxLen {
		return false
	}
	for _, cue := range returnCues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}

// equipmentTypeOf extracts an equipment type from a tool result payload.
// Tools report it either flat ("equipmentType"/"equipment_type") or
// nested under an "equipment" object.
func equipmentTypeOf(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	for _, key := range []string{"equipmentType", "equipment_type"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	if nested, ok := payload["equipment"].(map[string]any); ok {
		if s, ok := nested["type"].(string); ok {
			return s
		}
	}
	return ""
}
