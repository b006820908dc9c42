package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/api"
	"github.com/dp287517/electrohub-assistant/pkg/observability"
	"github.com/dp287517/electrohub-assistant/pkg/provider"
	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// EventWriter is the incremental delivery surface. The HTTP transport
// implements it over SSE. A WriteEvent error means the client is gone;
// emission stops and the request context is cancelled by the transport.
type EventWriter interface {
	WriteEvent(ctx context.Context, event api.StreamEvent) error
}

// RespondStream handles one incremental chat request. Events are
// emitted in order: status, content deltas, an optional tools event
// after at most one tool round, a final content stream seeded with the
// tool results, and complete. Unlike the buffered mode, the streaming
// path executes at most one tool round; that asymmetry buys lower
// latency for interactive clients.
//
// A returned error means the transport failed; provider failures are
// reported to the client as an error event and return nil.
func (e *Engine) RespondStream(ctx context.Context, req *api.ChatRequest, w EventWriter) error {
	start := time.Now()
	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	if apiErr := api.Normalize(req, e.cfg.Validation); apiErr != nil {
		observability.RequestsTotal.WithLabelValues("stream", "invalid").Inc()
		return w.WriteEvent(ctx, api.StreamEvent{
			Type:    api.EventError,
			Message: apiErr.Message,
		})
	}

	if err := w.WriteEvent(ctx, api.StreamEvent{
		Type:    api.EventStatus,
		Message: "processing",
	}); err != nil {
		return err
	}

	prevType := req.Context.PreviousPersonaType
	equipType := ""
	if req.Context.CurrentEquipment != nil {
		equipType = req.Context.CurrentEquipment.Type
	}

	preliminary, _ := e.catalog.Get(e.catalog.Detect(req.Message, nil, prevType, equipType))
	sess := newSession(req, e.cfg, preliminary)
	fo := e.newFailover()

	// The handoff narration leads the stream so the persona switch is
	// visible before the first real content.
	previous, _ := e.catalog.Get(prevType)
	if narration := e.narrator.Handoff(previous, preliminary); narration != "" {
		if err := w.WriteEvent(ctx, api.StreamEvent{
			Type:  api.EventContent,
			Delta: narration + "\n\n",
		}); err != nil {
			return err
		}
	}

	// First provider round.
	_, calls, err := e.streamRound(ctx, fo, sess, w)
	if err != nil {
		return e.streamFailure(ctx, w, start, err)
	}

	// At most one tool round in streaming mode.
	if len(calls) > 0 && fo.toolCapable() {
		results := e.executeBatch(ctx, calls)
		sess.appendToolRound(calls, results)

		if err := w.WriteEvent(ctx, api.StreamEvent{
			Type:    api.EventTools,
			Results: sess.toolsUsed,
		}); err != nil {
			return err
		}

		// Final content stream seeded with the tool results. Further
		// tool calls are not honored in this mode.
		if _, _, err := e.streamRound(ctx, fo, sess, w); err != nil {
			return e.streamFailure(ctx, w, start, err)
		}
	}

	detectedType := e.catalog.Detect(req.Message, sess.results, prevType, equipType)
	detected, _ := e.catalog.Get(detectedType)
	e.collector.RecordPersona(detectedType)
	observability.PersonaSelectionsTotal.WithLabelValues(detectedType).Inc()

	duration := time.Since(start)
	e.collector.RecordRequest(true, duration)
	observability.RequestsTotal.WithLabelValues("stream", "success").Inc()
	observability.RequestDuration.WithLabelValues("stream").Observe(duration.Seconds())

	return w.WriteEvent(ctx, api.StreamEvent{
		Type:             api.EventComplete,
		PersonaType:      detected.Type,
		PersonaName:      detected.DisplayName,
		SuggestedActions: e.suggestActions(sess, "", detected),
	})
}

// streamRound performs one provider round, forwarding text deltas as
// content events and collecting any tool calls. Providers without
// streaming capability are served via Chat and emitted as one delta.
func (e *Engine) streamRound(ctx context.Context, fo *failoverChat, sess *session, w EventWriter) (string, []tools.Call, error) {
	req := &provider.Request{
		Messages: sess.messages,
		Tools:    e.runner.Definitions(),
	}

	if !fo.active().Capabilities().Streaming {
		resp, err := fo.chat(ctx, req)
		if err != nil {
			return "", nil, err
		}
		if resp.Content != "" {
			if err := w.WriteEvent(ctx, api.StreamEvent{
				Type:  api.EventContent,
				Delta: resp.Content,
			}); err != nil {
				return "", nil, err
			}
		}
		return resp.Content, resp.ToolCalls, nil
	}

	ch, err := fo.stream(ctx, req)
	if err != nil {
		return "", nil, err
	}

	var content string
	var calls []tools.Call
	for ev := range ch {
		if ctx.Err() != nil {
			drain(ch)
			return content, calls, ctx.Err()
		}
		switch ev.Type {
		case provider.EventTextDelta:
			content += ev.Delta
			if err := w.WriteEvent(ctx, api.StreamEvent{
				Type:  api.EventContent,
				Delta: ev.Delta,
			}); err != nil {
				drain(ch)
				return content, calls, err
			}
		case provider.EventToolCall:
			if ev.ToolCall != nil {
				calls = append(calls, *ev.ToolCall)
			}
		case provider.EventStreamError:
			return content, calls, ev.Err
		case provider.EventDone:
			return content, calls, nil
		}
	}
	return content, calls, nil
}

// drain consumes the remaining provider events in the background so an
// early exit does not strand the producer goroutine on a blocked send.
func drain(ch <-chan provider.Event) {
	go func() {
		for range ch {
		}
	}()
}

// streamFailure reports an unrecoverable failure as an error event and
// closes the exchange gracefully.
func (e *Engine) streamFailure(ctx context.Context, w EventWriter, start time.Time, cause error) error {
	slog.Error("streaming chat request failed",
		"error", cause.Error(),
		"kind", provider.KindOf(cause).String(),
	)
	duration := time.Since(start)
	e.collector.RecordError(provider.KindOf(cause).String(), cause.Error())
	e.collector.RecordRequest(false, duration)
	observability.RequestsTotal.WithLabelValues("stream", "degraded").Inc()
	observability.RequestDuration.WithLabelValues("stream").Observe(duration.Seconds())

	if ctx.Err() != nil {
		// Client is gone; nothing to report to.
		return ctx.Err()
	}
	return w.WriteEvent(ctx, api.StreamEvent{
		Type:    api.EventError,
		Message: degradedMessage,
	})
}
