package mcp

// Transport selects how the gateway's MCP server is exposed, or how a client
// reaches one.
type Transport string

const (
	// TransportStdio speaks MCP over stdin/stdout. Logs must go to stderr.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP serves the MCP Streamable HTTP protocol.
	TransportStreamableHTTP Transport = "streamable-http"
)

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ToolResult holds the outcome of a single tool call as seen by a client.
type ToolResult struct {
	// Content is the concatenated text content of the result.
	Content string

	// IsError is true when the tool reported a failure. Content then holds
	// the error message.
	IsError bool
}
