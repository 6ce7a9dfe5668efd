// Package app wires all creatorgw subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds the job provider,
// dispatcher, gateway and MCP server; Run serves MCP over the configured
// transport (plus the metrics and health endpoints); Shutdown releases what
// New acquired.
//
// For testing, inject a job provider double via [WithProvider]. When an option
// is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/creatorgw/internal/config"
	"github.com/MrWong99/creatorgw/internal/dispatch"
	"github.com/MrWong99/creatorgw/internal/gateway"
	"github.com/MrWong99/creatorgw/internal/health"
	"github.com/MrWong99/creatorgw/internal/mcp"
	"github.com/MrWong99/creatorgw/internal/observe"
	"github.com/MrWong99/creatorgw/internal/resilience"
	"github.com/MrWong99/creatorgw/pkg/provider/jobs"
	"github.com/MrWong99/creatorgw/pkg/provider/jobs/apify"
)

// MCPPath is the route the streamable-http transport is served on.
const MCPPath = "/mcp"

// shutdownGrace bounds how long HTTP servers may drain in-flight requests.
const shutdownGrace = 10 * time.Second

// errSessionEnded stops the remaining servers once the stdio client has gone.
var errSessionEnded = errors.New("app: stdio session ended")

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	version string

	// Subsystems, initialised in New.
	registry   *config.Registry
	provider   jobs.Provider
	dispatcher *dispatch.Dispatcher
	gateway    *gateway.Gateway
	server     *mcpsdk.Server
	health     *health.Handler
	httpClient *http.Client

	metrics  *observe.Metrics
	gatherer prometheus.Gatherer
	level    *slog.LevelVar

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithProvider injects a job provider instead of creating one from config.
func WithProvider(p jobs.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithRegistry replaces the provider registry. The default registry holds the
// built-in providers (see [RegisterBuiltinProviders]).
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithMetrics records on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithGatherer serves /metrics from g instead of the Prometheus default
// registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *App) { a.gatherer = g }
}

// WithLevelVar lets [App.Reload] adjust the log level at runtime.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithVersion sets the version announced to MCP clients.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Nothing is started
// and no network traffic happens until [App.Run].
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.gatherer == nil {
		a.gatherer = prometheus.DefaultGatherer
	}

	// ── 1. Job provider ──────────────────────────────────────────────────
	checks := []health.Checker{health.CatalogueCheck()}
	if a.provider == nil {
		// One connection pool serves provider calls and readiness probes.
		pool := http.DefaultTransport.(*http.Transport).Clone()
		a.httpClient = NewProviderHTTPClient(cfg.Provider, a.metrics, pool)
		a.closers = append(a.closers, func() error {
			pool.CloseIdleConnections()
			return nil
		})
		if a.registry == nil {
			a.registry = config.NewRegistry()
			RegisterBuiltinProviders(a.registry, a.httpClient)
		}

		p, err := a.registry.CreateJobs(cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("app: create %s provider: %w", cfg.Provider.Name, err)
		}
		a.provider = resilience.GuardProvider(p, newProviderBreaker(cfg.Provider, a.metrics))
		if cfg.Provider.Name == "apify" {
			checks = append(checks, apifyCheck(cfg.Provider, a.httpClient))
		}
		observe.Logger(ctx).Info("job provider created", "name", cfg.Provider.Name)
	}

	// ── 2. Dispatcher ────────────────────────────────────────────────────
	d, err := dispatch.New(a.provider, cfg.Jobs, dispatch.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.dispatcher = d

	// ── 3. Gateway + MCP server ──────────────────────────────────────────
	gw, err := gateway.New(d, gateway.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.gateway = gw
	a.server = mcp.NewServer(gw, mcp.ServerOptions{Version: a.version})

	// ── 4. Health ────────────────────────────────────────────────────────
	a.health = health.New(checks...)

	return a, nil
}

// Gateway returns the tool gateway.
func (a *App) Gateway() *gateway.Gateway { return a.gateway }

// Server returns the MCP server with every tool registered.
func (a *App) Server() *mcpsdk.Server { return a.server }

// ─── Provider wiring ─────────────────────────────────────────────────────────

// RegisterBuiltinProviders wires all built-in job provider factories into reg.
// Every provider they create sends its requests through client (see
// [NewProviderHTTPClient]).
func RegisterBuiltinProviders(reg *config.Registry, client *http.Client) {
	reg.RegisterJobs("apify", func(entry config.ProviderEntry) (jobs.Provider, error) {
		opts := []apify.Option{
			apify.WithHTTPClient(client),
			apify.WithWaitForFinish(time.Duration(entry.PollWaitSeconds) * time.Second),
		}
		if entry.BaseURL != "" {
			opts = append(opts, apify.WithBaseURL(entry.BaseURL))
		}
		return apify.New(entry.Token, opts...)
	})
}

// newProviderBreaker builds the circuit breaker guarding provider calls.
// Transitions are counted on creatorgw.provider.breaker_transitions.
func newProviderBreaker(entry config.ProviderEntry, m *observe.Metrics) *resilience.Breaker {
	return resilience.NewBreaker(resilience.BreakerConfig{
		Name:         entry.Name,
		MaxFailures:  entry.CircuitBreaker.MaxFailures,
		ResetTimeout: entry.CircuitBreaker.ResetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			m.RecordBreakerTransition(context.Background(), name, to.String())
		},
	})
}

// NewProviderHTTPClient returns the HTTP client used to talk to the job
// provider over base: every request is traced and counted on
// creatorgw.provider.requests. A nil base uses [http.DefaultTransport].
func NewProviderHTTPClient(entry config.ProviderEntry, m *observe.Metrics, base http.RoundTripper) *http.Client {
	counted := observe.NewProviderTransport(base, entry.Name, m, apify.RequestKind)
	return &http.Client{
		Timeout:   entry.HTTPTimeout,
		Transport: otelhttp.NewTransport(counted),
	}
}

// apifyCheck probes the token-owner endpoint so readiness fails on a revoked
// token as well as on an unreachable API.
func apifyCheck(entry config.ProviderEntry, client *http.Client) health.Checker {
	base := entry.BaseURL
	if base == "" {
		base = "https://api.apify.com"
	}
	header := http.Header{"Authorization": []string{"Bearer " + entry.Token}}
	return health.ProviderCheck("provider", strings.TrimRight(base, "/")+"/v2/users/me", client, header)
}

// ─── HTTP surface ────────────────────────────────────────────────────────────

// OpsHandler serves /metrics, /healthz and /readyz.
func (a *App) OpsHandler() http.Handler {
	mux := http.NewServeMux()
	a.registerOps(mux)
	return observe.Middleware(a.metrics)(mux)
}

// MCPHandler serves MCP at [MCPPath]. When the config has no separate metrics
// address, the ops routes are served alongside it.
func (a *App) MCPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MCPPath, mcp.HTTPHandler(a.server, slog.Default()))
	if a.cfg.Server.MetricsAddr == "" {
		a.registerOps(mux)
	}
	return observe.Middleware(a.metrics)(mux)
}

func (a *App) registerOps(mux *http.ServeMux) {
	a.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves MCP over the configured transport and blocks until ctx is
// cancelled or a server fails. In stdio mode Run also returns when the client
// closes stdin. Cancellation is not reported as an error.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	switch a.cfg.Server.Transport {
	case mcp.TransportStreamableHTTP:
		srv := a.newHTTPServer(a.cfg.Server.ListenAddr, a.MCPHandler())
		a.serveHTTP(gctx, g, srv, a.cfg.Server.TLS)
		slog.Info("serving MCP over streamable-http", "addr", a.cfg.Server.ListenAddr, "path", MCPPath)

	default:
		g.Go(func() error {
			if err := mcp.ServeStdio(gctx, a.server); err != nil {
				return err
			}
			return errSessionEnded
		})
		slog.Info("serving MCP over stdio")
	}

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		a.serveHTTP(gctx, g, a.newHTTPServer(addr, a.OpsHandler()), nil)
		slog.Info("serving metrics and health", "addr", addr)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, errSessionEnded) {
		return nil
	}
	return err
}

func (a *App) newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// serveHTTP runs srv in g and shuts it down once ctx is done.
func (a *App) serveHTTP(ctx context.Context, g *errgroup.Group, srv *http.Server, tlsCfg *config.TLSConfig) {
	g.Go(func() error {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("app: listen %s: %w", srv.Addr, err)
		}
		if tlsCfg != nil {
			cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
			if err != nil {
				ln.Close()
				return fmt.Errorf("app: load TLS key pair: %w", err)
			}
			ln = tls.NewListener(ln, &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			})
		}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown error", "addr", srv.Addr, "err", err)
		}
		return ctx.Err()
	})
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies what can change at runtime from a reloaded config: the log
// level. Other changes are logged as requiring a restart.
func (a *App) Reload(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.LogLevelChanged && a.level != nil {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.RequiresRestart() {
		slog.Warn("configuration changes require a restart to take effect",
			"provider_changed", d.ProviderChanged,
			"server_changed", d.ServerChanged,
			"jobs_changed", d.JobsChanged,
		)
	}
}

// SlogLevel converts a config log level to its slog equivalent. Unknown or
// empty levels map to info.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown releases everything New acquired. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
