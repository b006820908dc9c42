package engine

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/observability"
	"github.com/dp287517/electrohub-assistant/pkg/persona"
	"github.com/dp287517/electrohub-assistant/pkg/provider"
	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// mockProvider implements provider.Provider with a scripted per-call
// function. The call counter spans Chat and Stream.
type mockProvider struct {
	name string
	caps provider.Capabilities

	mu    sync.Mutex
	calls int
	fn    func(call int, req *provider.Request) (*provider.Response, error)
}

func (m *mockProvider) Name() string                        { return m.name }
func (m *mockProvider) Capabilities() provider.Capabilities { return m.caps }
func (m *mockProvider) Close() error                        { return nil }

func (m *mockProvider) Chat(_ context.Context, req *provider.Request) (*provider.Response, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()
	return m.fn(n, req)
}

func (m *mockProvider) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	resp, err := m.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan provider.Event, len(resp.ToolCalls)+2)
	if resp.Content != "" {
		ch <- provider.Event{Type: provider.EventTextDelta, Delta: resp.Content}
	}
	for i := range resp.ToolCalls {
		tc := resp.ToolCalls[i]
		ch <- provider.Event{Type: provider.EventToolCall, ToolCall: &tc}
	}
	ch <- provider.Event{Type: provider.EventDone}
	close(ch)
	return ch, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ provider.Provider = (*mockProvider)(nil)

// mockRunner implements ToolRunner with a canned execute function.
type mockRunner struct {
	defs []tools.Definition

	mu      sync.Mutex
	exec    int
	execute func(call tools.Call) *tools.Result
}

func (m *mockRunner) Definitions() []tools.Definition { return m.defs }

func (m *mockRunner) Execute(_ context.Context, call tools.Call) *tools.Result {
	m.mu.Lock()
	m.exec++
	m.mu.Unlock()
	if m.execute != nil {
		return m.execute(call)
	}
	return &tools.Result{
		CallID:  call.ID,
		Name:    call.Name,
		Success: true,
		Payload: map[string]any{"status": "ok"},
	}
}

func (m *mockRunner) execCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exec
}

var _ ToolRunner = (*mockRunner)(nil)

func fullCaps() provider.Capabilities {
	return provider.Capabilities{Streaming: true, ToolCalling: true}
}

func textResponse(content string) *provider.Response {
	return &provider.Response{Content: content}
}

func toolCallResponse(id, name, args string) *provider.Response {
	return &provider.Response{
		ToolCalls: []tools.Call{{ID: id, Name: name, Arguments: args}},
	}
}

// newTestEngine builds an engine with a millisecond retry base so retry
// tests do not sleep for real.
func newTestEngine(t *testing.T, primary provider.Provider, runner ToolRunner, opts ...Option) *Engine {
	t.Helper()
	opts = append(opts, WithNarrator(persona.NewNarrator(rand.New(rand.NewSource(1)))))
	eng, err := New(primary, runner, observability.NewCollector(), Config{
		RetryBaseDelay: time.Millisecond,
	}, opts...)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return eng
}

func TestRespond_TextOnly(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(_ int, _ *provider.Request) (*provider.Response, error) {
			return textResponse("All breakers are closed."), nil
		},
	}
	eng := newTestEngine(t, mp, &mockRunner{})

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{Message: "Status of the switchroom?"})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if resp.Message != "All breakers are closed." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.Provider != api.ProviderPrimary {
		t.Errorf("expected primary provider, got %q", resp.Provider)
	}
	if resp.IterationsUsed != 0 {
		t.Errorf("expected 0 iterations, got %d", resp.IterationsUsed)
	}
	if len(resp.ToolsUsed) != 0 {
		t.Errorf("expected no tools used, got %v", resp.ToolsUsed)
	}
}

func TestRespond_TwoToolRounds(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(call int, _ *provider.Request) (*provider.Response, error) {
			switch call {
			case 1:
				return toolCallResponse("call_1", "search_equipment", `{"query":"drive"}`), nil
			case 2:
				return toolCallResponse("call_2", "get_equipment_details", `{"equipment_id":"VSD-1"}`), nil
			default:
				return textResponse("The drive VSD-1 is healthy."), nil
			}
		},
	}
	runner := &mockRunner{}
	eng := newTestEngine(t, mp, runner)

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{Message: "Check the drive in B12"})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if resp.IterationsUsed != 2 {
		t.Errorf("expected 2 iterations, got %d", resp.IterationsUsed)
	}
	if len(resp.ToolsUsed) != 2 {
		t.Fatalf("expected 2 tools used, got %d", len(resp.ToolsUsed))
	}
	if resp.ToolsUsed[0].Name != "search_equipment" || resp.ToolsUsed[1].Name != "get_equipment_details" {
		t.Errorf("unexpected tool order: %v", resp.ToolsUsed)
	}
	if mp.callCount() != 3 {
		t.Errorf("expected 3 provider calls, got %d", mp.callCount())
	}
	if runner.execCount() != 2 {
		t.Errorf("expected 2 tool executions, got %d", runner.execCount())
	}
}

func TestRespond_IterationCap(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(_ int, _ *provider.Request) (*provider.Response, error) {
			// Always asks for another tool, with partial content alongside.
			return &provider.Response{
				Content:   "still digging",
				ToolCalls: []tools.Call{{ID: "call_x", Name: "search_equipment", Arguments: `{}`}},
			}, nil
		},
	}
	runner := &mockRunner{}
	eng := newTestEngine(t, mp, runner)

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{Message: "loop forever please"})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if resp.IterationsUsed != DefaultMaxToolIterations {
		t.Errorf("expected %d iterations, got %d", DefaultMaxToolIterations, resp.IterationsUsed)
	}
	// Cap rounds plus the final call whose tool request is not honored.
	if mp.callCount() != DefaultMaxToolIterations+1 {
		t.Errorf("expected %d provider calls, got %d", DefaultMaxToolIterations+1, mp.callCount())
	}
	if runner.execCount() != DefaultMaxToolIterations {
		t.Errorf("expected %d tool executions, got %d", DefaultMaxToolIterations, runner.execCount())
	}
	if !strings.Contains(resp.Message, "still digging") {
		t.Errorf("expected available content in message, got %q", resp.Message)
	}
}

func TestRespond_EmptyMessageRejected(t *testing.T) {
	mp := &mockProvider{name: "primary", caps: fullCaps(), fn: func(_ int, _ *provider.Request) (*provider.Response, error) {
		t.Fatal("provider must not be called for invalid input")
		return nil, nil
	}}
	eng := newTestEngine(t, mp, &mockRunner{})

	_, err := eng.Respond(context.Background(), &api.ChatRequest{Message: ""})
	if err == nil {
		t.Fatal("expected validation error for empty message")
	}
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T", err)
	}
	if apiErr.Type != api.ErrorTypeValidation {
		t.Errorf("expected validation error type, got %q", apiErr.Type)
	}
}

func TestRespond_MessageClamped(t *testing.T) {
	var seenLen int
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(_ int, req *provider.Request) (*provider.Response, error) {
			last := req.Messages[len(req.Messages)-1]
			seenLen = len([]rune(last.Content))
			return textResponse("ok"), nil
		},
	}
	eng := newTestEngine(t, mp, &mockRunner{})

	long := strings.Repeat("é", 12000)
	if _, err := eng.Respond(context.Background(), &api.ChatRequest{Message: long}); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if seenLen != 10000 {
		t.Errorf("expected message clamped to 10000 runes, provider saw %d", seenLen)
	}
}

func TestRespond_QuotaFailover(t *testing.T) {
	quotaErr := &provider.Error{Kind: provider.KindQuota, Provider: "primary", Status: 429, Message: "quota exhausted"}
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(_ int, _ *provider.Request) (*provider.Response, error) {
			return nil, quotaErr
		},
	}
	secondary := &mockProvider{
		name: "secondary",
		caps: provider.Capabilities{Streaming: false, ToolCalling: false},
		fn: func(_ int, req *provider.Request) (*provider.Response, error) {
			if len(req.Tools) != 0 {
				t.Error("tools must be stripped for a text-only secondary")
			}
			return textResponse("Answer from the fallback model."), nil
		},
	}
	runner := &mockRunner{defs: []tools.Definition{{Name: "search_equipment"}}}
	eng := newTestEngine(t, mp, runner, WithSecondary(secondary))

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{Message: "anything in B12?"})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if resp.Provider != api.ProviderSecondary {
		t.Errorf("expected secondary provider, got %q", resp.Provider)
	}
	if resp.Message != "Answer from the fallback model." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	// The quota error is retried to exhaustion before switching.
	if mp.callCount() != DefaultRetryAttempts {
		t.Errorf("expected %d primary attempts, got %d", DefaultRetryAttempts, mp.callCount())
	}
	if secondary.callCount() != 1 {
		t.Errorf("expected 1 secondary call, got %d", secondary.callCount())
	}
}

func TestRespond_FatalDegradesGracefully(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(_ int, _ *provider.Request) (*provider.Response, error) {
			return nil, &provider.Error{Kind: provider.KindFatal, Provider: "primary", Status: 400, Message: "bad request"}
		},
	}
	eng := newTestEngine(t, mp, &mockRunner{})

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("degraded path must not surface an error, got: %v", err)
	}
	if resp.Message != degradedMessage {
		t.Errorf("expected degraded message, got %q", resp.Message)
	}
	if mp.callCount() != 1 {
		t.Errorf("fatal errors must not be retried, got %d calls", mp.callCount())
	}

	var retry bool
	for _, a := range resp.SuggestedActions {
		if a.Prompt == "hello" {
			retry = true
		}
	}
	if !retry {
		t.Errorf("expected a retry suggestion carrying the original message, got %v", resp.SuggestedActions)
	}
}

func TestRespond_HandoffNarration(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(_ int, _ *provider.Request) (*provider.Response, error) {
			return textResponse("Check the F012 code on the Altivar."), nil
		},
	}
	eng := newTestEngine(t, mp, &mockRunner{})

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{
		Message: "Montre-moi les derniers variateurs en panne",
		Context: api.ChatContext{PreviousPersonaType: "main"},
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if resp.PersonaType != "vsd" {
		t.Fatalf("expected vsd persona, got %q", resp.PersonaType)
	}
	if !strings.Contains(resp.Message, "Variable Speed Drive Specialist") {
		t.Errorf("expected handoff narration naming the specialist, got %q", resp.Message)
	}
	if !strings.HasSuffix(resp.Message, "Check the F012 code on the Altivar.") {
		t.Errorf("expected narration prepended to content, got %q", resp.Message)
	}
}

func TestRespond_NoNarrationWhenPersonaRetained(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(_ int, _ *provider.Request) (*provider.Response, error) {
			return textResponse("Parameter P-142 controls the ramp time."), nil
		},
	}
	eng := newTestEngine(t, mp, &mockRunner{})

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{
		Message: "et le réglage du variateur ?",
		Context: api.ChatContext{PreviousPersonaType: "vsd"},
	})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if resp.PersonaType != "vsd" {
		t.Fatalf("expected vsd persona, got %q", resp.PersonaType)
	}
	if resp.Message != "Parameter P-142 controls the ramp time." {
		t.Errorf("expected content without narration, got %q", resp.Message)
	}
}

func TestRespond_FrontendInstructionsLastWriteWins(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(call int, _ *provider.Request) (*provider.Response, error) {
			switch call {
			case 1:
				return toolCallResponse("call_1", "search_equipment", `{}`), nil
			case 2:
				return toolCallResponse("call_2", "get_equipment_details", `{}`), nil
			default:
				return textResponse("done"), nil
			}
		},
	}
	runner := &mockRunner{
		execute: func(call tools.Call) *tools.Result {
			view := "list"
			if call.Name == "get_equipment_details" {
				view = "detail"
			}
			return &tools.Result{
				CallID:              call.ID,
				Name:                call.Name,
				Success:             true,
				FrontendInstruction: map[string]any{"view": view},
			}
		},
	}
	eng := newTestEngine(t, mp, runner)

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{Message: "show the drive"})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if got := resp.FrontendInstructions["view"]; got != "detail" {
		t.Errorf("expected later instruction to win, got %v", got)
	}
}

func TestRespond_SuggestedActionsCapped(t *testing.T) {
	mp := &mockProvider{
		name: "primary",
		caps: fullCaps(),
		fn: func(call int, _ *provider.Request) (*provider.Response, error) {
			if call == 1 {
				return &provider.Response{ToolCalls: []tools.Call{
					{ID: "call_1", Name: "search_equipment"},
					{ID: "call_2", Name: "get_vsd_faults"},
				}}, nil
			}
			return textResponse("Maintenance is overdue and a fault is active."), nil
		},
	}
	runner := &mockRunner{
		execute: func(call tools.Call) *tools.Result {
			if call.Name == "get_vsd_faults" {
				return &tools.Result{CallID: call.ID, Name: call.Name, Success: false, Error: "timeout"}
			}
			return &tools.Result{
				CallID:  call.ID,
				Name:    call.Name,
				Success: true,
				Payload: map[string]any{"equipment": map[string]any{"name": "VSD-B12-007", "type": "vsd"}},
			}
		},
	}
	eng := newTestEngine(t, mp, runner)

	resp, err := eng.Respond(context.Background(), &api.ChatRequest{Message: "what about maintenance on the drive?"})
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	if len(resp.SuggestedActions) == 0 {
		t.Fatal("expected suggested actions")
	}
	if len(resp.SuggestedActions) > 4 {
		t.Errorf("expected at most 4 suggested actions, got %d", len(resp.SuggestedActions))
	}
	seen := map[string]bool{}
	for _, a := range resp.SuggestedActions {
		if seen[a.Label] {
			t.Errorf("duplicate suggestion label %q", a.Label)
		}
		seen[a.Label] = true
	}
}
