package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dp287517/electrohub-assistant/pkg/api"
)

func TestSSEWriter_EventFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	err := w.WriteEvent(context.Background(), api.StreamEvent{
		Type:  api.EventContent,
		Delta: "hello",
	})
	if err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: content\n") {
		t.Errorf("missing event line in %q", body)
	}
	if !strings.Contains(body, `data: {"type":"content","delta":"hello"}`) {
		t.Errorf("missing data line in %q", body)
	}
	if strings.Contains(body, "[DONE]") {
		t.Errorf("non-terminal event must not emit [DONE]: %q", body)
	}
}

func TestSSEWriter_TerminalEventEmitsDone(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	if err := w.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventComplete}); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
		t.Errorf("expected [DONE] trailer, got %q", rec.Body.String())
	}

	// The writer refuses further events after a terminal one.
	if err := w.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventContent, Delta: "late"}); err == nil {
		t.Error("expected error writing after terminal event")
	}
}

func TestSSEWriter_ErrorEventIsTerminal(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	if err := w.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventError, Message: "nope"}); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "data: [DONE]") {
		t.Errorf("error event must terminate the stream: %q", rec.Body.String())
	}
}

func TestSSEWriter_TracksStreamingState(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newSSEEventWriter(rec)

	if w.hasStartedStreaming() {
		t.Error("fresh writer must report idle")
	}
	if err := w.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventStatus, Message: "processing"}); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if !w.hasStartedStreaming() {
		t.Error("writer must report streaming after the first event")
	}
}
