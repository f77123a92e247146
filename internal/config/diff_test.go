package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/podium/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:   config.ServerConfig{LogLevel: config.LogInfo, CORSOrigins: []string{"http://a"}},
		Practice: config.PracticeConfig{CatalogFile: "catalog.yaml"},
	}
	d := config.Diff(cfg, cfg)
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level must not require restart, got %v", d.RestartRequired)
	}
}

func TestDiff_CatalogChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Practice: config.PracticeConfig{CatalogFile: "a.yaml"}}
	new := &config.Config{Practice: config.PracticeConfig{CatalogFile: "b.yaml"}}

	d := config.Diff(old, new)
	if !d.CatalogChanged || d.NewCatalogFile != "b.yaml" {
		t.Errorf("expected catalog change to b.yaml, got %+v", d)
	}
}

func TestDiff_CORSChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{CORSOrigins: []string{"http://a"}}}
	new := &config.Config{Server: config.ServerConfig{CORSOrigins: []string{"http://a", "http://b"}}}

	if d := config.Diff(old, new); !d.CORSChanged {
		t.Error("expected CORSChanged=true")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server:    config.ServerConfig{ListenAddr: ":5000"},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai", Model: "gpt-4"}},
		LiveKit:   config.LiveKitConfig{URL: "wss://a"},
	}
	new := &config.Config{
		Server:    config.ServerConfig{ListenAddr: ":6000"},
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai", Model: "gpt-4o"}},
		LiveKit:   config.LiveKitConfig{URL: "wss://b"},
		Database:  config.DatabaseConfig{PostgresDSN: "postgres://x"},
		HeadPose:  config.HeadPoseConfig{Command: []string{"python3", "detector.py"}},
	}

	d := config.Diff(old, new)
	for _, want := range []string{"server.listen_addr", "providers", "livekit", "database", "head_pose"} {
		if !slices.Contains(d.RestartRequired, want) {
			t.Errorf("RestartRequired missing %q: %v", want, d.RestartRequired)
		}
	}
	if slices.Contains(d.RestartRequired, "server.environment") {
		t.Errorf("environment did not change: %v", d.RestartRequired)
	}
}
