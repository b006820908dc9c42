// Command mock-backend runs a deterministic Chat Completions server for
// local development and conformance testing of the assistant. It answers
// with maintenance-flavored responses, issues a tool call when tools are
// offered and no tool results are present yet, and can simulate failure
// modes for failover testing.
//
// Configuration:
//
//	MOCK_PORT      - Listen port (default: 9090)
//	MOCK_FAIL_MODE - "quota" returns 429, "transient" returns 500 (default: off)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	failMode := os.Getenv("MOCK_FAIL_MODE")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		handleChatCompletions(w, r, failMode)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "fail_mode", failMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []any         `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request, failMode string) {
	switch failMode {
	case "quota":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"you have exceeded your quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
		return
	case "transient":
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"upstream overloaded","type":"server_error"}}`))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	if req.Stream {
		handleStreaming(w, &req)
		return
	}

	resp := classifyAndRespond(&req)
	resp.Model = req.Model
	if resp.Model == "" {
		resp.Model = "mock-model"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func classifyAndRespond(req *chatRequest) chatResponse {
	// Issue a tool call on the first pass when tools are offered and no
	// tool results are in the conversation yet.
	if len(req.Tools) > 0 && !hasToolResults(req) {
		return toolCallResponse(req)
	}

	if hasToolResults(req) {
		return makeTextResponse("Based on the equipment record, the drive reported an overcurrent fault (F012). Check the motor cable insulation and clear the fault before restarting.")
	}

	return basicTextResponse(req)
}

func basicTextResponse(req *chatRequest) chatResponse {
	text := "Hello, how can I help with your electrical equipment today?"

	lastMsg := strings.ToLower(getLastUserMessage(req))
	switch {
	case strings.Contains(lastMsg, "variateur") || strings.Contains(lastMsg, "vsd"):
		text = "The variable speed drive section covers fault codes, parameter settings, and maintenance schedules."
	case strings.Contains(lastMsg, "transformer") || strings.Contains(lastMsg, "transformateur"):
		text = "Transformer maintenance covers oil analysis, winding resistance tests, and thermal inspections."
	}

	return makeTextResponse(text)
}

func toolCallResponse(req *chatRequest) chatResponse {
	toolName := "search_equipment"
	args := `{"query":"variable speed drive","status":"fault"}`
	lastMsg := strings.ToLower(getLastUserMessage(req))
	if strings.Contains(lastMsg, "details") || strings.Contains(lastMsg, "detail") {
		toolName = "get_equipment_details"
		args = `{"equipment_id":"VSD-B12-007"}`
	}

	return chatResponse{
		ID:     "chatcmpl-" + uuid.NewString(),
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: nil,
					ToolCalls: []toolCall{
						{
							ID:   "call_" + uuid.NewString(),
							Type: "function",
							Function: funcCall{
								Name:      toolName,
								Arguments: args,
							},
						},
					},
				},
				FinishReason: "tool_calls",
			},
		},
		Usage: chatUsage{PromptTokens: 20, CompletionTokens: 15, TotalTokens: 35},
	}
}

func makeTextResponse(text string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-" + uuid.NewString(),
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: &text,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// --- Streaming ---

func handleStreaming(w http.ResponseWriter, req *chatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	resp := classifyAndRespond(req)
	msg := resp.Choices[0].Message

	// Role chunk first.
	writeSSEChunk(w, model, "", true)
	flusher.Flush()

	if len(msg.ToolCalls) > 0 {
		writeToolCallChunk(w, model, msg.ToolCalls[0])
		flusher.Flush()
		writeFinishChunk(w, model, "tool_calls")
	} else {
		for _, token := range strings.SplitAfter(*msg.Content, " ") {
			writeSSEChunk(w, model, token, false)
			flusher.Flush()
		}
		writeFinishChunk(w, model, "stop")
	}
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSSEChunk(w http.ResponseWriter, model, content string, isRole bool) {
	delta := map[string]any{}
	if isRole {
		delta["role"] = "assistant"
	}
	if content != "" {
		delta["content"] = content
	}

	writeChunk(w, model, delta, nil)
}

func writeToolCallChunk(w http.ResponseWriter, model string, tc toolCall) {
	delta := map[string]any{
		"tool_calls": []any{
			map[string]any{
				"index": 0,
				"id":    tc.ID,
				"type":  "function",
				"function": map[string]any{
					"name":      tc.Function.Name,
					"arguments": tc.Function.Arguments,
				},
			},
		},
	}
	writeChunk(w, model, delta, nil)
}

func writeFinishChunk(w http.ResponseWriter, model, reason string) {
	writeChunk(w, model, map[string]any{}, &reason)
}

func writeChunk(w http.ResponseWriter, model string, delta map[string]any, finish *string) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": finish,
			},
		},
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// --- Helpers ---

func getLastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

func hasToolResults(req *chatRequest) bool {
	for _, msg := range req.Messages {
		if msg.Role == "tool" {
			return true
		}
	}
	return false
}
