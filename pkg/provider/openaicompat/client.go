package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dp287517/electrohub-assistant/pkg/provider"
	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// Config holds the settings for one Chat Completions backend.
type Config struct {
	// Name identifies the provider in logs and metrics (e.g., "openai").
	Name string

	// BaseURL is the backend root, without the /v1/chat/completions path.
	BaseURL string

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string

	// Model is the model name sent with every request.
	Model string

	// Timeout bounds non-streaming calls. Defaults to 120s.
	Timeout time.Duration

	// ToolCalling declares whether the backend supports function calling.
	// A text-only secondary provider sets this to false.
	ToolCalling bool
}

// Client implements provider.Provider against an OpenAI-compatible
// Chat Completions backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a Client for the given backend configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openaicompat: model is required")
	}
	if cfg.Name == "" {
		cfg.Name = "openaicompat"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name implements provider.Provider.
func (c *Client) Name() string { return c.cfg.Name }

// Capabilities implements provider.Provider.
func (c *Client) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming:   true,
		ToolCalling: c.cfg.ToolCalling,
	}
}

// Close implements provider.Provider.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Chat performs non-streaming inference.
func (c *Client) Chat(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	httpResp, err := c.post(ctx, req, false, c.httpClient)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(c.cfg.Name, httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, &provider.Error{
			Kind:     provider.KindTransient,
			Provider: c.cfg.Name,
			Message:  "failed to parse backend response: " + err.Error(),
		}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &provider.Error{
			Kind:     provider.KindTransient,
			Provider: c.cfg.Name,
			Message:  "backend produced no choices",
		}
	}

	msg := chatResp.Choices[0].Message
	resp := &provider.Response{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, tools.Call{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

// Stream performs streaming inference. The HTTP client timeout is not
// applied for streaming requests because a stream can legitimately last
// longer than any fixed timeout; the context controls the lifetime.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	streamClient := &http.Client{Transport: c.httpClient.Transport}

	httpResp, err := c.post(ctx, req, true, streamClient)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(c.cfg.Name, httpResp)
	}

	ch := make(chan provider.Event)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		parseSSEStream(ctx, c.cfg.Name, httpResp.Body, ch)
	}()

	return ch, nil
}

// post builds and sends one Chat Completions request.
func (c *Client) post(ctx context.Context, req *provider.Request, stream bool, client *http.Client) (*http.Response, error) {
	chatReq := translateRequest(c.cfg.Model, req, stream)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, &provider.Error{
			Kind:     provider.KindFatal,
			Provider: c.cfg.Name,
			Message:  "failed to marshal request: " + err.Error(),
		}
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &provider.Error{
			Kind:     provider.KindFatal,
			Provider: c.cfg.Name,
			Message:  "failed to create HTTP request: " + err.Error(),
		}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(c.cfg.Name, err)
	}
	return httpResp, nil
}

// translateRequest converts a provider.Request to the Chat Completions
// wire format.
func translateRequest(model string, req *provider.Request, stream bool) *ChatCompletionRequest {
	chatReq := &ChatCompletionRequest{
		Model:  model,
		Stream: stream,
	}

	for _, m := range req.Messages {
		cm := ChatMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, ChatToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: ChatFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		chatReq.Messages = append(chatReq.Messages, cm)
	}

	for _, def := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, ChatTool{
			Type: "function",
			Function: ChatFunctionDef{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	return chatReq
}
