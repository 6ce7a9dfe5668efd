// Package gateway is the tool-call pipeline behind the MCP server.
//
// A call flows catalogue lookup → validation → dispatch (remote job, or the
// local pricing model for generate_rate_card) → composition. Every outcome,
// including panics deep in the pipeline, is folded into a [Response]; a
// failing tool call never surfaces as a protocol error and never takes the
// caller's channel down.
//
// Register wires every catalogue descriptor onto an MCP server:
//
//	gw, err := gateway.New(dispatcher)
//	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "creatorgw"}, nil)
//	gw.Register(server)
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/creatorgw/internal/catalogue"
	"github.com/MrWong99/creatorgw/internal/compose"
	"github.com/MrWong99/creatorgw/internal/dispatch"
	"github.com/MrWong99/creatorgw/internal/observe"
	"github.com/MrWong99/creatorgw/internal/resilience"
	"github.com/MrWong99/creatorgw/internal/validate"
	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
)

// Call status labels recorded on the tool call metrics.
const (
	statusOK               = "ok"
	statusUnknownTool      = "unknown_tool"
	statusInvalidArguments = "invalid_arguments"
	statusNotFound         = "not_found"
	statusJobFailed        = "job_failed"
	statusJobTimedOut      = "job_timed_out"
	statusJobAborted       = "job_aborted"
	statusUnavailable      = "provider_unavailable"
	statusError            = "error"
	statusPanic            = "panic"
)

// secretArgs are argument properties that are passed through to jobs but
// never logged.
var secretArgs = []string{"youtubeApiKey"}

// Dispatcher runs a validated command. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd catalogue.Command) (jobs.ResultSet, error)
}

// Response is the outcome of one tool call as reported to the caller.
type Response struct {
	// Text is the serialised JSON payload on success, or a human-readable
	// message when IsError is set.
	Text string

	// IsError marks a tool-level failure.
	IsError bool
}

// Gateway executes tool calls. It holds no per-call state and is safe for
// concurrent use.
type Gateway struct {
	validator  *validate.Validator
	dispatcher Dispatcher
	metrics    *observe.Metrics
}

// Option configures a [Gateway].
type Option func(*Gateway)

// WithMetrics records tool calls on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// New creates a Gateway that runs validated commands on d.
func New(d Dispatcher, opts ...Option) (*Gateway, error) {
	if d == nil {
		return nil, errors.New("gateway: dispatcher must not be nil")
	}
	v, err := validate.New()
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	g := &Gateway{validator: v, dispatcher: d}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.DefaultMetrics()
	}
	return g, nil
}

// Call runs the named tool with raw arguments.
func (g *Gateway) Call(ctx context.Context, name string, raw json.RawMessage) (resp Response) {
	start := time.Now()
	status := statusOK

	g.metrics.ActiveToolCalls.Add(ctx, 1)
	ctx, span := observe.StartSpan(ctx, "tool "+name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("tool", name)),
	)
	log := observe.Logger(ctx).With("tool", name)

	defer func() {
		if r := recover(); r != nil {
			status = statusPanic
			log.Error("tool call panicked", "panic", r, "stack", string(debug.Stack()))
			resp = Response{Text: fmt.Sprintf("Error: internal error while running %s", name), IsError: true}
		}
		elapsed := time.Since(start)
		g.metrics.ActiveToolCalls.Add(ctx, -1)
		g.metrics.RecordToolCall(ctx, name, status, elapsed.Seconds())
		span.SetAttributes(attribute.String("tool.status", status))
		var spanErr error
		if resp.IsError {
			spanErr = errors.New(resp.Text)
		}
		observe.EndSpan(span, spanErr)
		log.Info("tool call finished", "status", status, "duration", elapsed)
	}()

	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("tool call", "args", string(Redact(raw)))
	}

	cmd, err := g.validator.Validate(name, raw)
	if err != nil {
		status = classify(err)
		return errorResponse(err)
	}

	rs, err := g.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		status = classify(err)
		if status == statusError {
			log.Warn("tool call failed", "err", err)
		}
		return errorResponse(err)
	}

	payload, err := compose.Compose(name, rs)
	if err != nil {
		status = statusError
		log.Warn("compose failed", "err", err)
		return errorResponse(err)
	}
	return Response{Text: string(payload)}
}

// Register adds every catalogue tool to server, in catalogue order. Calls
// naming a tool outside the catalogue are answered by [Gateway.Call] as well,
// so a misspelt name comes back as an isError result with a suggestion
// rather than as a protocol error.
func (g *Gateway) Register(server *mcpsdk.Server) {
	server.AddReceivingMiddleware(g.unknownTools)
	for _, d := range catalogue.List() {
		server.AddTool(&mcpsdk.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		}, g.handler(d.Name))
	}
}

// handler adapts Call to the MCP SDK. It never returns a protocol error.
func (g *Gateway) handler(name string) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		return toolResult(g.Call(ctx, name, raw)), nil
	}
}

// unknownTools intercepts tools/call requests for names the SDK would reject
// before any handler runs.
func (g *Gateway) unknownTools(next mcpsdk.MethodHandler) mcpsdk.MethodHandler {
	return func(ctx context.Context, method string, req mcpsdk.Request) (mcpsdk.Result, error) {
		if method != "tools/call" {
			return next(ctx, method, req)
		}
		call, ok := req.(*mcpsdk.CallToolRequest)
		if !ok || call.Params == nil {
			return next(ctx, method, req)
		}
		if _, known := catalogue.Lookup(call.Params.Name); known {
			return next(ctx, method, req)
		}
		return toolResult(g.Call(ctx, call.Params.Name, call.Params.Arguments)), nil
	}
}

func toolResult(resp Response) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: resp.Text}},
		IsError: resp.IsError,
	}
}

// classify maps an error to its call status label.
func classify(err error) string {
	var (
		unknown  *validate.UnknownToolError
		invalid  *validate.SchemaViolationError
		notFound *dispatch.NotFoundError
		jobErr   *dispatch.ExternalJobError
	)
	switch {
	case errors.As(err, &unknown):
		return statusUnknownTool
	case errors.As(err, &invalid):
		return statusInvalidArguments
	case errors.As(err, &notFound):
		return statusNotFound
	case errors.As(err, &jobErr):
		switch jobErr.State {
		case jobs.StateTimedOut:
			return statusJobTimedOut
		case jobs.StateAborted:
			return statusJobAborted
		default:
			return statusJobFailed
		}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return statusUnavailable
	}
	return statusError
}

// errorResponse renders err for the caller. Not-found is informational and
// carries no "Error:" prefix.
func errorResponse(err error) Response {
	var notFound *dispatch.NotFoundError
	if errors.As(err, &notFound) {
		return Response{Text: "Not found: " + notFound.Error(), IsError: true}
	}
	return Response{Text: "Error: " + err.Error(), IsError: true}
}

// Redact returns raw with every secret argument replaced. Malformed input is
// returned as a placeholder so it is never echoed into logs.
func Redact(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	if !json.Valid(raw) {
		return json.RawMessage(`"<malformed arguments>"`)
	}
	out := []byte(raw)
	for _, key := range secretArgs {
		redacted, err := sjson.SetBytes(append([]byte(nil), out...), key, "[REDACTED]")
		if err != nil {
			continue
		}
		// SetBytes adds the key when absent; only keep the result when it
		// replaced an existing value.
		if hasKey(out, key) {
			out = redacted
		}
	}
	return out
}

func hasKey(raw []byte, key string) bool {
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
