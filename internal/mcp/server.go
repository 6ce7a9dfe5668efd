// Package mcp exposes the tool gateway as a Model Context Protocol server and
// provides a small client for talking to one.
//
// The server side is a thin shell around the official go-sdk: the gateway
// registers its tools on the [mcpsdk.Server] returned by [NewServer], which is
// then run over stdio ([ServeStdio]) or mounted as an HTTP handler
// ([HTTPHandler]). The client side ([Client]) is used by the command-line
// tooling to call a running gateway.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolRegistrar adds tools to an MCP server. *gateway.Gateway implements it.
type ToolRegistrar interface {
	Register(server *mcpsdk.Server)
}

// ServerOptions configures [NewServer].
type ServerOptions struct {
	// Name is the implementation name announced during initialisation.
	// Defaults to "creatorgw".
	Name string

	// Version is the implementation version announced during initialisation.
	Version string

	// Logger receives the SDK's own diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewServer creates an MCP server with every tool of r registered.
func NewServer(r ToolRegistrar, opts ServerOptions) *mcpsdk.Server {
	if opts.Name == "" {
		opts.Name = "creatorgw"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	server := mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: opts.Name, Version: opts.Version},
		&mcpsdk.ServerOptions{Logger: opts.Logger},
	)
	r.Register(server)
	return server
}

// ServeStdio runs server over stdin/stdout until the client disconnects or
// ctx is cancelled. A cancelled context is not reported as an error.
func ServeStdio(ctx context.Context, server *mcpsdk.Server) error {
	err := server.Run(ctx, &mcpsdk.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HTTPHandler returns a Streamable HTTP handler serving server. Every HTTP
// session shares the same server and therefore the same tool catalogue.
func HTTPHandler(server *mcpsdk.Server, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return mcpsdk.NewStreamableHTTPHandler(
		func(*http.Request) *mcpsdk.Server { return server },
		&mcpsdk.StreamableHTTPOptions{Logger: logger},
	)
}
