package config

import (
	"maps"
	"slices"
)

// ConfigDiff describes what changed between two configs.
// Only the log level can be applied without a restart; everything else is
// reported so the operator can be told a restart is needed.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// ProviderChanged is true if any provider setting changed.
	ProviderChanged bool

	// ServerChanged is true if the transport, listen or metrics address, or
	// TLS settings changed.
	ServerChanged bool

	// JobsChanged lists, in sorted order, every tool whose job type override
	// was added, removed or changed.
	JobsChanged []string
}

// RequiresRestart reports whether d contains changes that only take effect
// after a restart.
func (d ConfigDiff) RequiresRestart() bool {
	return d.ProviderChanged || d.ServerChanged || len(d.JobsChanged) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.ProviderChanged = old.Provider != new.Provider

	if old.Server.Transport != new.Server.Transport ||
		old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.MetricsAddr != new.Server.MetricsAddr ||
		!equalTLS(old.Server.TLS, new.Server.TLS) {
		d.ServerChanged = true
	}

	tools := make(map[string]struct{}, len(old.Jobs)+len(new.Jobs))
	for tool := range old.Jobs {
		tools[tool] = struct{}{}
	}
	for tool := range new.Jobs {
		tools[tool] = struct{}{}
	}
	for _, tool := range slices.Sorted(maps.Keys(tools)) {
		oldType, oldOK := old.Jobs[tool]
		newType, newOK := new.Jobs[tool]
		if oldOK != newOK || oldType != newType {
			d.JobsChanged = append(d.JobsChanged, tool)
		}
	}

	return d
}

func equalTLS(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
