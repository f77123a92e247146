package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CatalogChanged is true when practice.catalog_file changed.
	CatalogChanged bool
	NewCatalogFile string

	// CORSChanged is true when the allowed origin list changed.
	CORSChanged bool

	// RestartRequired lists settings that changed but only take effect
	// after a restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.CatalogChanged && !d.CORSChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Practice.CatalogFile != new.Practice.CatalogFile {
		d.CatalogChanged = true
		d.NewCatalogFile = new.Practice.CatalogFile
	}
	if !slices.Equal(old.Server.CORSOrigins, new.Server.CORSOrigins) {
		d.CORSChanged = true
	}

	restart := func(field string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, field)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("server.environment", old.Server.Environment != new.Server.Environment)
	restart("providers", !providersEqual(old.Providers, new.Providers))
	restart("database", old.Database != new.Database)
	restart("livekit", old.LiveKit != new.LiveKit)
	restart("head_pose", !headPoseEqual(old.HeadPose, new.HeadPose))

	return d
}

func providersEqual(a, b ProvidersConfig) bool {
	if a.CircuitBreaker != b.CircuitBreaker {
		return false
	}
	pairs := [][2]ProviderEntry{
		{a.LLM, b.LLM}, {a.FallbackLLM, b.FallbackLLM},
		{a.STT, b.STT}, {a.FallbackSTT, b.FallbackSTT},
	}
	for _, p := range pairs {
		x, y := p[0], p[1]
		if x.Name != y.Name || x.APIKey != y.APIKey || x.BaseURL != y.BaseURL ||
			x.Model != y.Model || x.Timeout != y.Timeout {
			return false
		}
	}
	return true
}

func headPoseEqual(a, b HeadPoseConfig) bool {
	return slices.Equal(a.Command, b.Command) && slices.Equal(a.Env, b.Env) &&
		a.Dir == b.Dir && a.ServerURL == b.ServerURL &&
		a.StartTimeout == b.StartTimeout && a.StopTimeout == b.StopTimeout
}
