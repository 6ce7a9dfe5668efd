package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/creatorgw/internal/config"
	"github.com/MrWong99/creatorgw/internal/mcp"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Transport: mcp.TransportStdio,
			LogLevel:  config.LogInfo,
		},
		Provider: config.ProviderEntry{Name: "apify", Token: "t", PollWaitSeconds: 60},
		Jobs:     map[string]string{"get_creator_profiles": "acme~profiles"},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	d := config.Diff(cfg, baseConfig())
	if d.LogLevelChanged || d.ProviderChanged || d.ServerChanged || len(d.JobsChanged) != 0 {
		t.Errorf("expected no changes, got %+v", d)
	}
	if d.RequiresRestart() {
		t.Error("identical configs should not require a restart")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RequiresRestart() {
		t.Error("a log level change should apply without restart")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		check  func(config.ConfigDiff) bool
	}{
		{
			name:   "token rotated",
			mutate: func(c *config.Config) { c.Provider.Token = "t2" },
			check:  func(d config.ConfigDiff) bool { return d.ProviderChanged },
		},
		{
			name:   "transport switched",
			mutate: func(c *config.Config) { c.Server.Transport = mcp.TransportStreamableHTTP },
			check:  func(d config.ConfigDiff) bool { return d.ServerChanged },
		},
		{
			name:   "tls added",
			mutate: func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "c", KeyFile: "k"} },
			check:  func(d config.ConfigDiff) bool { return d.ServerChanged },
		},
		{
			name: "job overrides edited",
			mutate: func(c *config.Config) {
				delete(c.Jobs, "get_creator_profiles")
				c.Jobs["benchmark_competitors"] = "acme~bench"
			},
			check: func(d config.ConfigDiff) bool {
				return slices.Equal(d.JobsChanged, []string{"benchmark_competitors", "get_creator_profiles"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			new := baseConfig()
			tt.mutate(new)
			d := config.Diff(baseConfig(), new)
			if !tt.check(d) {
				t.Errorf("unexpected diff: %+v", d)
			}
			if !d.RequiresRestart() {
				t.Error("expected RequiresRestart=true")
			}
		})
	}
}
