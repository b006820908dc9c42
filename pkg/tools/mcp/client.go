package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dp287517/electrohub-assistant/pkg/tools"
)

// Client wraps an MCP SDK client and session for a single server
// connection. It handles the connection lifecycle, tool discovery, and
// tool execution.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu            sync.Mutex
	cachedTools   []tools.Definition
	toolsResolved bool
}

// NewClient creates a Client for the given server configuration.
// Call Connect to establish the connection.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the MCP connection, performing the protocol
// handshake. For testing, a non-nil transport bypasses URL-based
// transport creation.
func (c *Client) Connect(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "electrohub-assistant",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

// createTransport creates an MCP transport from the server configuration.
func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// buildHTTPClient returns an HTTP client applying the configured static
// headers, or nil when none are configured.
func (c *Client) buildHTTPClient() *http.Client {
	if len(c.cfg.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
		},
	}
}

// headerTransport is an http.RoundTripper that adds custom headers to
// every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// DiscoverTools queries the MCP server for available tools, converts
// them to tool definitions, and caches the result.
func (c *Client) DiscoverTools(ctx context.Context) ([]tools.Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.toolsResolved {
		return c.cachedTools, nil
	}
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var defs []tools.Definition
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		def, convErr := convertTool(tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		defs = append(defs, def)
	}

	c.cachedTools = defs
	c.toolsResolved = true
	return defs, nil
}

// CallTool executes a tool on the MCP server. Transport and server
// errors come back as failed outcomes, never as aborts.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (*tools.Outcome, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var argMap map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argMap); err != nil {
			return nil, fmt.Errorf("invalid arguments JSON: %w", err)
		}
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: argMap,
	})
	if err != nil {
		return nil, fmt.Errorf("MCP tool call error: %w", err)
	}

	return convertResult(result), nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// convertTool converts an MCP tool declaration to a tools.Definition.
func convertTool(t *mcp.Tool) (tools.Definition, error) {
	var params json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return tools.Definition{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		params = data
	}

	return tools.Definition{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}, nil
}

// convertResult converts an MCP call result to a tool outcome. When the
// server returned structured content, that becomes the payload; plain
// text content lands under the "content" key. A frontendInstruction key
// inside structured content is lifted out so the engine can merge it.
func convertResult(result *mcp.CallToolResult) *tools.Outcome {
	outcome := &tools.Outcome{
		Success: !result.IsError,
		Payload: map[string]any{},
	}

	if sc, ok := result.StructuredContent.(map[string]any); ok {
		for k, v := range sc {
			if k == "frontendInstruction" {
				if instr, ok := v.(map[string]any); ok {
					outcome.FrontendInstruction = instr
				}
				continue
			}
			outcome.Payload[k] = v
		}
	}

	var text string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if text != "" {
				text += "\n"
			}
			text += tc.Text
		}
	}
	if text != "" {
		outcome.Payload["content"] = text
	}

	return outcome
}
