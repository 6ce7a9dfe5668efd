// Package config provides the configuration schema, loader, and provider registry
// for the creatorgw tool gateway.
package config

import (
	"time"

	"github.com/MrWong99/creatorgw/internal/mcp"
)

// LogLevel controls log verbosity for the gateway.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by the loader to fields left empty.
const (
	DefaultTransport       = mcp.TransportStdio
	DefaultListenAddr      = ":8080"
	DefaultLogLevel        = LogInfo
	DefaultProvider        = "apify"
	DefaultPollWaitSeconds = 60
	DefaultHTTPTimeout     = 90 * time.Second
)

// Config is the root configuration structure for creatorgw.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Provider ProviderEntry `yaml:"provider"`

	// Jobs overrides the job type (remote job definition) a tool runs,
	// keyed by tool name. Tools not listed keep their built-in job type.
	// Resolved once at startup.
	Jobs map[string]string `yaml:"jobs"`
}

// ServerConfig holds transport, network and logging settings.
type ServerConfig struct {
	// Transport selects how MCP is served: "stdio" (default) or
	// "streamable-http".
	Transport mcp.Transport `yaml:"transport"`

	// ListenAddr is the TCP address the streamable-http transport listens on
	// (e.g., ":8080"). Ignored for stdio.
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr, when set, serves /metrics, /healthz and /readyz on a
	// separate listener. When empty in streamable-http mode they share
	// ListenAddr; in stdio mode they are not served at all.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the streamable-http listener. When nil, the
	// server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProviderEntry configures the remote job provider.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "apify").
	Name string `yaml:"name"`

	// Token authenticates against the provider's API. Usually supplied via
	// the APIFY_TOKEN environment variable rather than the file.
	Token string `yaml:"token"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// PollWaitSeconds is how long a single status request may block on the
	// provider side while waiting for a job to finish, between 1 and 60.
	// Left empty or 0, the loader fills in the default of 60.
	PollWaitSeconds int `yaml:"poll_wait_seconds"`

	// HTTPTimeout bounds every individual HTTP request to the provider
	// (e.g., "90s"). It must exceed PollWaitSeconds.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// CircuitBreaker tunes the breaker that fails tool calls fast while the
	// provider keeps failing at the transport level.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig tunes the job provider's circuit breaker. Zero values
// select the built-in defaults.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive transport failures that open
	// the breaker. Default: 5.
	MaxFailures int `yaml:"max_failures"`

	// ResetTimeout is how long the breaker stays open before a probe call is
	// let through (e.g., "30s").
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}
