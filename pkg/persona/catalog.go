package persona

// TypeMain is the generalist persona every conversation starts from.
const TypeMain = "main"

// Persona is one named domain-specialist conversational role. The catalog
// is static: loaded once, immutable during a request.
type Persona struct {
	// Type is the stable identifier used in requests and responses.
	Type string

	// DisplayName is the user-facing name.
	DisplayName string

	// Keywords route messages to this persona (rule 4). Checked
	// lower-cased; lists include French and English forms because the
	// fleet documentation is bilingual.
	Keywords []string

	// EquipmentTypes route equipment context and tool results carrying
	// an equipment type to this persona (rules 1 and 2).
	EquipmentTypes []string

	// ToolAffinities route turns whose executed tool names intersect
	// this list (rule 3).
	ToolAffinities []string

	// handoffs are the weighted narration templates used when control
	// transfers to this persona.
	handoffs []handoffTemplate
}

// Catalog is an ordered persona set. Order matters: keyword matching
// checks personas in declared order and the first match wins.
type Catalog struct {
	personas []Persona
	byType   map[string]*Persona
}

// returnCues are the short phrases that hand the conversation back to the
// main persona. They are honored only for messages under 50 characters so
// a "merci" buried in a long technical question does not reset the
// specialist.
var returnCues = []string{
	"merci",
	"thanks",
	"thank you",
	"retour",
	"menu principal",
	"autre chose",
	"back to main",
	"ok",
}

// Default returns the built-in ElectroHub persona catalog.
func Default() *Catalog {
	return NewCatalog([]Persona{
		{
			Type:        TypeMain,
			DisplayName: "ElectroHub Assistant",
		},
		{
			Type:        "vsd",
			DisplayName: "Variable Speed Drive Specialist",
			Keywords: []string{
				"variateur", "vsd", "vfd", "drive", "altivar",
				"fréquence moteur", "frequency converter",
			},
			EquipmentTypes: []string{"vsd", "variateur", "drive"},
			ToolAffinities: []string{"get_vsd_faults", "get_vsd_parameters"},
			handoffs:       specialistHandoffs,
		},
		{
			Type:        "switchgear",
			DisplayName: "Switchgear & Protection Specialist",
			Keywords: []string{
				"disjoncteur", "tableau", "cellule", "breaker",
				"switchgear", "switchboard", "protection", "relais",
				"sélectivité",
			},
			EquipmentTypes: []string{"switchgear", "tableau", "breaker", "mcc"},
			ToolAffinities: []string{"get_breaker_settings", "get_selectivity_study"},
			handoffs:       specialistHandoffs,
		},
		{
			Type:        "transformer",
			DisplayName: "Transformer Specialist",
			Keywords: []string{
				"transformateur", "transfo", "transformer",
				"dga", "huile", "oil analysis", "bobinage",
			},
			EquipmentTypes: []string{"transformer", "transformateur"},
			ToolAffinities: []string{"get_oil_analysis", "get_transformer_load"},
			handoffs:       specialistHandoffs,
		},
		{
			Type:        "motor",
			DisplayName: "Motors & Rotating Machines Specialist",
			Keywords: []string{
				"moteur", "motor", "roulement", "bearing",
				"vibration", "stator", "rotor",
			},
			EquipmentTypes: []string{"motor", "moteur"},
			ToolAffinities: []string{"get_vibration_report", "get_motor_history"},
			handoffs:       specialistHandoffs,
		},
		{
			Type:        "atex",
			DisplayName: "ATEX & Hazardous Areas Specialist",
			Keywords: []string{
				"atex", "zone explosive", "hazardous area",
				"antidéflagrant", "explosion proof", "zone 1", "zone 2",
			},
			EquipmentTypes: []string{"atex"},
			ToolAffinities: []string{"get_atex_certificates", "get_zone_classification"},
			handoffs:       specialistHandoffs,
		},
	})
}

// NewCatalog builds a Catalog from an ordered persona list. The first
// entry is expected to be the main persona.
func NewCatalog(personas []Persona) *Catalog {
	c := &Catalog{
		personas: personas,
		byType:   make(map[string]*Persona, len(personas)),
	}
	for i := range c.personas {
		c.byType[c.personas[i].Type] = &c.personas[i]
	}
	return c
}

// Get returns the persona for the given type.
func (c *Catalog) Get(personaType string) (*Persona, bool) {
	p, ok := c.byType[personaType]
	return p, ok
}

// Main returns the main persona.
func (c *Catalog) Main() *Persona {
	if p, ok := c.byType[TypeMain]; ok {
		return p
	}
	return &c.personas[0]
}

// DisplayName resolves a persona type to its user-facing name, falling
// back to the main persona for unknown types.
func (c *Catalog) DisplayName(personaType string) string {
	if p, ok := c.byType[personaType]; ok {
		return p.DisplayName
	}
	return c.Main().DisplayName
}
