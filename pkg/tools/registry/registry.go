// Package registry provides the typed tool registry. Handlers are
// registered at startup; their declared names and parameter schemas are
// validated then, turning a runtime "tool not found" or malformed schema
// into a boot-time error.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dp287517/electrohub-assistant/pkg/observability"
	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// entry pairs a handler with its compiled parameter schema.
type entry struct {
	handler tools.Handler
	schema  *gojsonschema.Schema
}

// Registry resolves declared tool names to handlers and executes calls.
// Registration happens at startup; after that the registry is read-only
// and safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry

	// order preserves registration order for Definitions.
	order []string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds a handler, compiling its parameter schema. It fails on a
// duplicate name, an empty name, or a schema that does not compile, so a
// misdeclared catalog is caught before the first request.
func (r *Registry) Register(h tools.Handler) error {
	def := h.Definition()
	if def.Name == "" {
		return fmt.Errorf("registry: handler with empty tool name")
	}

	var schema *gojsonschema.Schema
	if len(def.Parameters) > 0 {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.Parameters))
		if err != nil {
			return fmt.Errorf("registry: tool %q parameter schema: %w", def.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[def.Name]; ok {
		return fmt.Errorf("registry: duplicate tool name %q", def.Name)
	}
	r.entries[def.Name] = entry{handler: h, schema: schema}
	r.order = append(r.order, def.Name)

	slog.Info("registered tool", "tool", def.Name)
	return nil
}

// Has reports whether a handler is registered for the named tool.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Definitions returns the declared tool catalog in registration order.
func (r *Registry) Definitions() []tools.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]tools.Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].handler.Definition())
	}
	return defs
}

// Execute resolves and invokes one tool call. It never returns an error:
// unknown names, invalid arguments, handler errors, and handler panics
// all become failed results so a single tool failure cannot abort the
// overall exchange.
func (r *Registry) Execute(ctx context.Context, call tools.Call) (res *tools.Result) {
	r.mu.RLock()
	e, ok := r.entries[call.Name]
	r.mu.RUnlock()

	if !ok {
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, "unknown").Inc()
		return &tools.Result{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   fmt.Sprintf("no handler registered for tool %q", call.Name),
		}
	}

	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool handler panicked",
				"tool", call.Name,
				"call_id", call.ID,
				"panic", rec,
			)
			res = &tools.Result{
				CallID:  call.ID,
				Name:    call.Name,
				Success: false,
				Error:   fmt.Sprintf("internal error: tool %q panicked", call.Name),
			}
			observability.ToolExecutionsTotal.WithLabelValues(call.Name, "panic").Inc()
			observability.ToolDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
		}
	}()

	args := normalizeArguments(call.Arguments)

	if e.schema != nil {
		if msg, ok := validateArgs(e.schema, args); !ok {
			observability.ToolExecutionsTotal.WithLabelValues(call.Name, "invalid_args").Inc()
			return &tools.Result{
				CallID:  call.ID,
				Name:    call.Name,
				Success: false,
				Error:   fmt.Sprintf("invalid arguments for tool %q: %s", call.Name, msg),
			}
		}
	}

	outcome, err := e.handler.Invoke(ctx, args)
	duration := time.Since(start)

	if err != nil {
		slog.Warn("tool execution error",
			"tool", call.Name,
			"call_id", call.ID,
			"error", err.Error(),
		)
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, "error").Inc()
		observability.ToolDuration.WithLabelValues(call.Name).Observe(duration.Seconds())
		return &tools.Result{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   err.Error(),
		}
	}

	status := "success"
	if outcome == nil {
		outcome = &tools.Outcome{}
	}
	if !outcome.Success {
		status = "tool_error"
	}
	observability.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()
	observability.ToolDuration.WithLabelValues(call.Name).Observe(duration.Seconds())

	return &tools.Result{
		CallID:              call.ID,
		Name:                call.Name,
		Success:             outcome.Success,
		Payload:             outcome.Payload,
		FrontendInstruction: outcome.FrontendInstruction,
	}
}

// normalizeArguments turns the provider's arguments string into a JSON
// document. Providers occasionally send an empty string for zero-argument
// tools; treat that as an empty object.
func normalizeArguments(args string) json.RawMessage {
	if args == "" {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(args)
}

// validateArgs checks the arguments document against the compiled schema.
// Returns a human-readable message and false when validation fails.
func validateArgs(schema *gojsonschema.Schema, args json.RawMessage) (string, bool) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		// Unparseable JSON arguments.
		return err.Error(), false
	}
	if result.Valid() {
		return "", true
	}
	if errs := result.Errors(); len(errs) > 0 {
		return errs[0].String(), false
	}
	return "schema validation failed", false
}
