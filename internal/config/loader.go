package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/creatorgw/internal/catalogue"
	"github.com/MrWong99/creatorgw/internal/mcp"
)

// Environment variables overlaid on top of the file configuration.
const (
	EnvToken      = "APIFY_TOKEN"
	EnvBaseURL    = "APIFY_BASE_URL"
	EnvLogLevel   = "CREATORGW_LOG_LEVEL"
	EnvTransport  = "CREATORGW_TRANSPORT"
	EnvListenAddr = "CREATORGW_LISTEN_ADDR"
)

// maxPollWaitSeconds is the longest server-side wait the provider accepts on a
// single status request.
const maxPollWaitSeconds = 60

// ValidProviderNames lists the known job provider names.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{"apify"}

// LookupFunc resolves an environment variable. [os.LookupEnv] satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads the YAML configuration file at path, overlays the process
// environment and returns a validated [Config].
//
// An empty path skips the file entirely, so a gateway launched by an MCP
// client with only APIFY_TOKEN in its environment works without a config
// file.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(strings.NewReader(""), os.LookupEnv)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result
// without consulting the environment.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	return Parse(r, nil)
}

// Parse decodes a YAML config from r, overlays the variables resolved by
// lookup (which may be nil), fills defaults and validates the result.
func Parse(r io.Reader, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if lookup != nil {
		ApplyEnv(cfg, lookup)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default
// ".env") into the process environment. Variables already set are not
// overridden. Missing files are not an error; the returned bool reports
// whether anything was loaded.
func LoadDotEnv(paths ...string) (bool, error) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("config: stat %q: %w", p, err)
		}
	}
	if len(existing) == 0 {
		return false, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return false, fmt.Errorf("config: load env file: %w", err)
	}
	return true, nil
}

// ApplyEnv overlays environment variables onto cfg. Set variables win over
// file values; unset or empty ones leave cfg untouched.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvToken, &cfg.Provider.Token)
	set(EnvBaseURL, &cfg.Provider.BaseURL)
	set(EnvListenAddr, &cfg.Server.ListenAddr)

	var level, transport string
	set(EnvLogLevel, &level)
	if level != "" {
		cfg.Server.LogLevel = LogLevel(strings.ToLower(level))
	}
	set(EnvTransport, &transport)
	if transport != "" {
		cfg.Server.Transport = mcp.Transport(strings.ToLower(transport))
	}
}

// ApplyDefaults fills every empty field that has a default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = DefaultTransport
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Server.ListenAddr == "" && cfg.Server.Transport == mcp.TransportStreamableHTTP {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = DefaultProvider
	}
	if cfg.Provider.PollWaitSeconds == 0 {
		cfg.Provider.PollWaitSeconds = DefaultPollWaitSeconds
	}
	if cfg.Provider.HTTPTimeout == 0 {
		cfg.Provider.HTTPTimeout = DefaultHTTPTimeout
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.Transport != "" && !cfg.Server.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("server.transport %q is invalid; valid values: stdio, streamable-http", cfg.Server.Transport))
	}
	if cfg.Server.Transport == mcp.TransportStreamableHTTP && cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required when transport is streamable-http"))
	}
	if cfg.Server.MetricsAddr != "" && cfg.Server.MetricsAddr == cfg.Server.ListenAddr && cfg.Server.Transport == mcp.TransportStreamableHTTP {
		errs = append(errs, fmt.Errorf("server.metrics_addr %q must differ from server.listen_addr; leave it empty to share the listener", cfg.Server.MetricsAddr))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
		if cfg.Server.Transport == mcp.TransportStdio {
			slog.Warn("server.tls is set but transport is stdio; TLS settings are ignored")
		}
	}

	// Provider
	validateProviderName(cfg.Provider.Name)
	if cfg.Provider.Token == "" {
		errs = append(errs, fmt.Errorf("provider.token is required (set it in the file or via %s)", EnvToken))
	}
	if p := cfg.Provider.PollWaitSeconds; p < 1 || p > maxPollWaitSeconds {
		errs = append(errs, fmt.Errorf("provider.poll_wait_seconds %d is out of range [1, %d]", p, maxPollWaitSeconds))
	}
	if t := cfg.Provider.HTTPTimeout; t < 0 {
		errs = append(errs, fmt.Errorf("provider.http_timeout %s must not be negative", t))
	} else if t > 0 && t <= time.Duration(cfg.Provider.PollWaitSeconds)*time.Second {
		errs = append(errs, fmt.Errorf("provider.http_timeout %s must exceed poll_wait_seconds (%ds)", t, cfg.Provider.PollWaitSeconds))
	}
	if u := cfg.Provider.BaseURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		errs = append(errs, fmt.Errorf("provider.base_url %q must be an http(s) URL", u))
	}
	if n := cfg.Provider.CircuitBreaker.MaxFailures; n < 0 {
		errs = append(errs, fmt.Errorf("provider.circuit_breaker.max_failures %d must not be negative", n))
	}
	if d := cfg.Provider.CircuitBreaker.ResetTimeout; d < 0 {
		errs = append(errs, fmt.Errorf("provider.circuit_breaker.reset_timeout %s must not be negative", d))
	}

	// Job overrides
	for _, tool := range slices.Sorted(maps.Keys(cfg.Jobs)) {
		if _, ok := catalogue.Lookup(tool); !ok {
			errs = append(errs, fmt.Errorf("jobs.%s: unknown tool; valid tools: %s", tool, strings.Join(catalogue.Names(), ", ")))
			continue
		}
		if strings.TrimSpace(cfg.Jobs[tool]) == "" {
			errs = append(errs, fmt.Errorf("jobs.%s: job type must not be empty", tool))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidProviderNames].
func validateProviderName(name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or a third-party provider",
		"name", name,
		"known", ValidProviderNames,
	)
}
