package openaicompat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/provider"
)

// collectEvents runs the SSE parser over the given body and drains the
// event channel.
func collectEvents(t *testing.T, body string) []provider.Event {
	t.Helper()

	ch := make(chan provider.Event, 32)
	go func() {
		parseSSEStream(context.Background(), "test", strings.NewReader(body), ch)
		close(ch)
	}()

	var events []provider.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestParseSSEStream_TextDeltas(t *testing.T) {
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\"}}]}\n" +
		"\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hello\"}}]}\n" +
		"\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\" world\"}}]}\n" +
		"\n" +
		"data: [DONE]\n"

	events := collectEvents(t, body)

	var text string
	for _, ev := range events {
		if ev.Type == provider.EventTextDelta {
			text += ev.Delta
		}
	}
	if text != "Hello world" {
		t.Errorf("expected assembled text %q, got %q", "Hello world", text)
	}
	if events[len(events)-1].Type != provider.EventDone {
		t.Errorf("expected trailing done event, got %v", events[len(events)-1].Type)
	}
}

func TestParseSSEStream_ToolCallAssembly(t *testing.T) {
	// Arguments arrive split across chunks; id and name only on the first.
	body := `data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_9","function":{"name":"search_equipment","arguments":"{\"qu"}}]}}]}` + "\n\n" +
		`data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ery\":\"drive\"}"}}]}}]}` + "\n\n" +
		`data: {"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}` + "\n\n" +
		"data: [DONE]\n"

	events := collectEvents(t, body)

	var calls []provider.Event
	for _, ev := range events {
		if ev.Type == provider.EventToolCall {
			calls = append(calls, ev)
		}
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 assembled tool call, got %d", len(calls))
	}
	tc := calls[0].ToolCall
	if tc.ID != "call_9" || tc.Name != "search_equipment" {
		t.Errorf("unexpected tool call identity: %+v", tc)
	}
	if tc.Arguments != `{"query":"drive"}` {
		t.Errorf("arguments not reassembled: %q", tc.Arguments)
	}
	if events[len(events)-1].Type != provider.EventDone {
		t.Errorf("expected done after finish_reason")
	}
}

func TestParseSSEStream_MalformedChunkSkipped(t *testing.T) {
	body := "data: this is not json\n" +
		"\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ok\"}}]}\n" +
		"\n" +
		"data: [DONE]\n"

	events := collectEvents(t, body)

	var text string
	for _, ev := range events {
		if ev.Type == provider.EventStreamError {
			t.Fatalf("malformed chunk must be skipped, got stream error %v", ev.Err)
		}
		if ev.Type == provider.EventTextDelta {
			text += ev.Delta
		}
	}
	if text != "ok" {
		t.Errorf("expected remaining chunks processed, got %q", text)
	}
}

func TestParseSSEStream_CancelledConsumerReleasesParser(t *testing.T) {
	// Several deltas on an unbuffered channel; the consumer takes one
	// event, stops reading, and cancels. The parser must return instead
	// of blocking forever on its next send.
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"one\"}}]}\n" +
		"\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"two\"}}]}\n" +
		"\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"three\"}}]}\n" +
		"\n" +
		"data: [DONE]\n"

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan provider.Event)
	done := make(chan struct{})
	go func() {
		parseSSEStream(ctx, "test", strings.NewReader(body), ch)
		close(done)
	}()

	<-ch
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("parser still blocked on channel send after context cancellation")
	}
}

func TestParseSSEStream_TruncatedStreamStillCompletes(t *testing.T) {
	// Stream ends without [DONE] or finish_reason.
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"partial\"}}]}\n"

	events := collectEvents(t, body)
	if len(events) == 0 || events[len(events)-1].Type != provider.EventDone {
		t.Errorf("expected done event for truncated stream, got %v", events)
	}
}
