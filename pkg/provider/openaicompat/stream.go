package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/dp287517/electrohub-assistant/pkg/provider"
	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// toolCallBuffer tracks incremental tool call argument assembly across
// SSE chunks for a single tool call index.
type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

// parseSSEStream reads Chat Completions SSE chunks from body, translates
// them to provider events, and sends them on ch. The caller closes ch.
//
// Expected format:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//
// Malformed chunks are logged and skipped. Context cancellation stops
// reading immediately; every send races the context so an abandoned
// consumer never strands this goroutine on a blocked channel.
func parseSSEStream(ctx context.Context, providerName string, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)

	// send delivers one event unless the context is cancelled first.
	send := func(ev provider.Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// Tool call buffers keyed by tool call index.
	calls := make(map[int]*toolCallBuffer)
	var order []int

	flush := func() bool {
		for _, idx := range order {
			buf := calls[idx]
			ok := send(provider.Event{
				Type: provider.EventToolCall,
				ToolCall: &tools.Call{
					ID:        buf.id,
					Name:      buf.name,
					Arguments: buf.args.String(),
				},
			})
			if !ok {
				return false
			}
		}
		calls = make(map[int]*toolCallBuffer)
		order = nil
		return true
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			if flush() {
				send(provider.Event{Type: provider.EventDone})
			}
			return
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"provider", providerName,
				"error", err.Error(),
			)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]

		if choice.FinishReason != nil {
			if flush() {
				send(provider.Event{Type: provider.EventDone})
			}
			return
		}

		for _, tc := range choice.Delta.ToolCalls {
			buf, exists := calls[tc.Index]
			if !exists {
				buf = &toolCallBuffer{id: tc.ID, name: tc.Function.Name}
				calls[tc.Index] = buf
				order = append(order, tc.Index)
			}
			buf.args.WriteString(tc.Function.Arguments)
		}

		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			ok := send(provider.Event{
				Type:  provider.EventTextDelta,
				Delta: *choice.Delta.Content,
			})
			if !ok {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		send(provider.Event{
			Type: provider.EventStreamError,
			Err: &provider.Error{
				Kind:     provider.KindTransient,
				Provider: providerName,
				Message:  "SSE stream read error: " + err.Error(),
			},
		})
		return
	}

	// Stream ended without [DONE] or finish_reason.
	if flush() {
		send(provider.Event{Type: provider.EventDone})
	}
}
