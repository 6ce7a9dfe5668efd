package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ClientConfig describes how to reach an MCP server.
type ClientConfig struct {
	// Transport specifies the connection mechanism.
	Transport Transport

	// Command is the executable (with optional arguments) launched when
	// Transport is "stdio".
	Command string

	// Env holds additional environment variables for the stdio subprocess.
	Env map[string]string

	// URL is the MCP endpoint when Transport is "streamable-http".
	URL string
}

// Client is a single MCP client session. It is safe for concurrent use.
type Client struct {
	session *mcpsdk.ClientSession
}

// Connect opens a session to the server described by cfg.
func Connect(ctx context.Context, cfg ClientConfig) (*Client, error) {
	var transport mcpsdk.Transport

	switch cfg.Transport {
	case TransportStdio:
		executable, args := splitCommand(cfg.Command)
		if executable == "" {
			return nil, fmt.Errorf("mcp client: stdio transport requires a non-empty command")
		}
		cmd := exec.CommandContext(ctx, executable, args...)
		if len(cfg.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		transport = &mcpsdk.CommandTransport{Command: cmd}

	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("mcp client: streamable-http transport requires a non-empty URL")
		}
		transport = &mcpsdk.StreamableClientTransport{Endpoint: cfg.URL}

	default:
		return nil, fmt.Errorf("mcp client: unknown transport %q", cfg.Transport)
	}

	return ConnectTransport(ctx, transport)
}

// ConnectTransport opens a session over an already constructed transport.
func ConnectTransport(ctx context.Context, t mcpsdk.Transport) (*Client, error) {
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "creatorgw-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp client: connect: %w", err)
	}
	return &Client{session: session}, nil
}

// Tools lists every tool the server offers.
func (c *Client) Tools(ctx context.Context) ([]*mcpsdk.Tool, error) {
	var out []*mcpsdk.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcp client: list tools: %w", err)
		}
		out = append(out, tool)
	}
	return out, nil
}

// Call invokes the named tool. args must be a JSON object or empty. A
// tool-level failure is reported through [ToolResult.IsError], not as an
// error.
func (c *Client) Call(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	var arguments any = map[string]any{}
	if len(args) > 0 {
		if !json.Valid(args) {
			return nil, fmt.Errorf("mcp client: invalid args JSON for tool %q", name)
		}
		arguments = args
	}

	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp client: call to tool %q failed: %w", name, err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return &ToolResult{Content: sb.String(), IsError: res.IsError}, nil
}

// Close ends the session.
func (c *Client) Close() error {
	return c.session.Close()
}

// splitCommand splits a command string on whitespace into the executable and
// its arguments.
func splitCommand(command string) (executable string, args []string) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}
