package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/observability"
	"github.com/dp287517/electrohub-assistant/pkg/persona"
	"github.com/dp287517/electrohub-assistant/pkg/provider"
)

// degradedMessage is the user-facing text for any unrecovered failure at
// the boundary. The conversational surface never goes silent: the client
// always gets an assistant message plus a retry affordance.
const degradedMessage = "I'm having trouble reaching the assistant service " +
	"right now. Your question was not lost, please try again in a moment."

// Engine orchestrates chat requests between providers, tools, and
// personas. Construct once per process; safe for concurrent use.
type Engine struct {
	primary   provider.Provider
	secondary provider.Provider
	runner    ToolRunner
	catalog   *persona.Catalog
	narrator  *persona.Narrator
	collector *observability.Collector
	cfg       Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithSecondary sets the optional text-capable fallback provider used
// after a quota-classified primary failure.
func WithSecondary(p provider.Provider) Option {
	return func(e *Engine) { e.secondary = p }
}

// WithCatalog replaces the built-in persona catalog.
func WithCatalog(c *persona.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithNarrator replaces the handoff narrator (tests inject a seeded one).
func WithNarrator(n *persona.Narrator) Option {
	return func(e *Engine) { e.narrator = n }
}

// New creates an Engine. The primary provider, tool runner, and metrics
// collector must not be nil.
func New(primary provider.Provider, runner ToolRunner, collector *observability.Collector, cfg Config, opts ...Option) (*Engine, error) {
	if primary == nil {
		return nil, fmt.Errorf("engine: primary provider must not be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("engine: tool runner must not be nil")
	}
	if collector == nil {
		return nil, fmt.Errorf("engine: metrics collector must not be nil")
	}

	e := &Engine{
		primary:   primary,
		runner:    runner,
		collector: collector,
		cfg:       cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalog == nil {
		e.catalog = persona.Default()
	}
	if e.narrator == nil {
		e.narrator = persona.NewNarrator(nil)
	}
	return e, nil
}

// newFailover creates the request-scoped failover state.
func (e *Engine) newFailover() *failoverChat {
	return &failoverChat{
		primary:   e.primary,
		secondary: e.secondary,
		attempts:  e.cfg.RetryAttempts,
		baseDelay: e.cfg.RetryBaseDelay,
		collector: e.collector,
	}
}

// Respond handles one buffered chat request: full tool-call loop, then a
// single structured result. The returned error is non-nil only for
// invalid input; provider and tool failures degrade into a graceful
// assistant message instead.
func (e *Engine) Respond(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	start := time.Now()

	if apiErr := api.Normalize(req, e.cfg.Validation); apiErr != nil {
		observability.RequestsTotal.WithLabelValues("buffered", "invalid").Inc()
		return nil, apiErr
	}

	prevType := req.Context.PreviousPersonaType
	equipType := ""
	if req.Context.CurrentEquipment != nil {
		equipType = req.Context.CurrentEquipment.Type
	}

	// Preliminary routing (no tool results yet) shapes the system prompt.
	preliminary, _ := e.catalog.Get(e.catalog.Detect(req.Message, nil, prevType, equipType))
	sess := newSession(req, e.cfg, preliminary)
	fo := e.newFailover()

	content, err := e.runLoop(ctx, fo, sess)

	// Final routing uses the tool results gathered during the loop.
	detectedType := e.catalog.Detect(req.Message, sess.results, prevType, equipType)
	detected, _ := e.catalog.Get(detectedType)
	e.collector.RecordPersona(detectedType)
	observability.PersonaSelectionsTotal.WithLabelValues(detectedType).Inc()

	duration := time.Since(start)
	observability.RequestDuration.WithLabelValues("buffered").Observe(duration.Seconds())

	if err != nil {
		slog.Error("chat request degraded",
			"error", err.Error(),
			"kind", provider.KindOf(err).String(),
			"iterations", sess.iterations,
		)
		e.collector.RecordError(provider.KindOf(err).String(), err.Error())
		e.collector.RecordRequest(false, duration)
		observability.RequestsTotal.WithLabelValues("buffered", "degraded").Inc()
		return e.degradedResponse(req, fo, sess, detected), nil
	}

	previous, _ := e.catalog.Get(prevType)
	if narration := e.narrator.Handoff(previous, detected); narration != "" {
		if content == "" {
			content = narration
		} else {
			content = narration + "\n\n" + content
		}
	}

	e.collector.RecordRequest(true, duration)
	observability.RequestsTotal.WithLabelValues("buffered", "success").Inc()

	return &api.ChatResponse{
		Message:              content,
		Provider:             fo.role(),
		PersonaType:          detected.Type,
		PersonaName:          detected.DisplayName,
		ToolsUsed:            sess.toolsUsed,
		IterationsUsed:       sess.iterations,
		FrontendInstructions: sess.instructions,
		SuggestedActions:     e.suggestActions(sess, content, detected),
	}, nil
}

// degradedResponse builds the graceful failure answer.
func (e *Engine) degradedResponse(req *api.ChatRequest, fo *failoverChat, sess *session, detected *persona.Persona) *api.ChatResponse {
	return &api.ChatResponse{
		Message:        degradedMessage,
		Provider:       fo.role(),
		PersonaType:    detected.Type,
		PersonaName:    detected.DisplayName,
		ToolsUsed:      sess.toolsUsed,
		IterationsUsed: sess.iterations,
		SuggestedActions: []api.SuggestedAction{
			{Label: "Try again", Prompt: req.Message},
		},
	}
}
