// Package config provides the configuration schema, loader, and provider
// registry for the Podium speech-practice server.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the server.
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

// Slog maps l to the slog level. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Environment selects development or production behaviour (CORS origins,
// security headers, static file serving).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// IsValid reports whether e is a recognised environment.
func (e Environment) IsValid() bool {
	return e == EnvDevelopment || e == EnvProduction
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr        = ":5000"
	DefaultMaxBodyBytes      = 50 << 20
	DefaultLLMModel          = "gpt-4"
	DefaultSTTModel          = "whisper-1"
	DefaultAgentName         = "podium-interviewer"
	DefaultAgentWaitTimeout  = 10 * time.Second
	DefaultAgentPollInterval = 500 * time.Millisecond
	DefaultTokenTTL          = time.Hour
	DefaultHeadPoseURL       = "http://localhost:5001"
)

// DefaultDevOrigins are the CORS origins allowed in development when none are
// configured. Entries may contain a single "*" wildcard for subdomains.
var DefaultDevOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5000",
	"http://127.0.0.1:3000",
	"https://*.app.github.dev",
	"https://*.github.dev",
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Database  DatabaseConfig  `yaml:"database"`
	LiveKit   LiveKitConfig   `yaml:"livekit"`
	Practice  PracticeConfig  `yaml:"practice"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	HeadPose  HeadPoseConfig  `yaml:"head_pose"`
}

// ServerConfig holds network, logging and HTTP surface settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":5000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Environment is "development" (default) or "production".
	Environment Environment `yaml:"environment"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`

	// CORSOrigins lists allowed browser origins. Empty selects
	// [DefaultDevOrigins] in development and same-origin only in production.
	CORSOrigins []string `yaml:"cors_origins"`

	// StaticDir is the built client bundle served in production with an
	// index.html fallback. Empty disables static serving.
	StaticDir string `yaml:"static_dir"`

	// MaxBodyBytes caps JSON request bodies. Default: 50 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig declares the transcription and feedback backends. Each
// entry selects a named provider registered in the [Registry]. Fallback
// entries are optional.
type ProvidersConfig struct {
	LLM         ProviderEntry `yaml:"llm"`
	FallbackLLM ProviderEntry `yaml:"fallback_llm"`
	STT         ProviderEntry `yaml:"stt"`
	FallbackSTT ProviderEntry `yaml:"fallback_stt"`

	// CircuitBreaker tunes the per-provider breakers.
	CircuitBreaker BreakerConfig `yaml:"circuit_breaker"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "whisper").
	Name string `yaml:"name"`

	// APIKey authenticates against the provider. Supports ${VAR} references.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4", "whisper-1").
	Model string `yaml:"model"`

	// Timeout bounds a single provider request. Zero uses the provider default.
	Timeout time.Duration `yaml:"timeout"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// Configured reports whether the entry names a provider.
func (e ProviderEntry) Configured() bool { return e.Name != "" }

// BreakerConfig tunes circuit breakers around providers.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// DatabaseConfig configures practice-session persistence.
type DatabaseConfig struct {
	// PostgresDSN is the Postgres (Supabase) connection string. Empty keeps
	// sessions in memory.
	PostgresDSN string `yaml:"postgres_dsn"`

	// MaxConns caps the pool size. Zero uses the pgxpool default.
	MaxConns int32 `yaml:"max_conns"`
}

// LiveKitConfig configures AI conversation rooms.
type LiveKitConfig struct {
	URL       string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`

	// AgentName is the name the voice agent worker registered with.
	AgentName string `yaml:"agent_name"`

	// AgentWaitTimeout bounds how long room creation waits for the agent.
	AgentWaitTimeout time.Duration `yaml:"agent_wait_timeout"`

	// AgentPollInterval is the participant polling period.
	AgentPollInterval time.Duration `yaml:"agent_poll_interval"`

	// TokenTTL is the validity of issued participant tokens.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// Configured reports whether URL, key and secret are all set.
func (c LiveKitConfig) Configured() bool {
	return c.URL != "" && c.APIKey != "" && c.APISecret != ""
}

// HeadPoseConfig configures the head-pose detector sidecar. The detector is
// an HTTP service started on demand when a practice session or AI
// conversation begins.
type HeadPoseConfig struct {
	// Command is the executable and its arguments, e.g.
	// ["python3", "server/head-pose-detector.py"]. Empty disables the detector.
	Command []string `yaml:"command"`

	// Dir is the working directory of the detector process.
	Dir string `yaml:"dir"`

	// Env holds extra KEY=VALUE entries added to the inherited environment.
	Env []string `yaml:"env"`

	// ServerURL is where the detector listens. Its /health endpoint is polled
	// until the detector is ready.
	ServerURL string `yaml:"server_url"`

	// StartTimeout bounds how long Start waits for /health.
	StartTimeout time.Duration `yaml:"start_timeout"`

	// StopTimeout is the grace period between interrupt and kill.
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// PracticeConfig configures the practice catalog.
type PracticeConfig struct {
	// CatalogFile is an optional YAML file replacing the built-in
	// categories, questions, topics and interviewer roles.
	CatalogFile string `yaml:"catalog_file"`
}

// AnalysisConfig tunes the speech analysis pipeline.
type AnalysisConfig struct {
	// MockTranscriptOnFailure substitutes a placeholder transcript when
	// every transcriber fails instead of failing the request. Default: true.
	MockTranscriptOnFailure *bool `yaml:"mock_transcript_on_failure"`

	// Language is the ISO-639-1 transcription hint. Empty auto-detects.
	Language string `yaml:"language"`

	// FeedbackTemperature overrides the coaching temperature (0.7).
	FeedbackTemperature float64 `yaml:"feedback_temperature"`

	// FeedbackMaxTokens overrides the coaching token limit (300).
	FeedbackMaxTokens int `yaml:"feedback_max_tokens"`
}

// MockOnFailure reports the effective MockTranscriptOnFailure value.
func (a AnalysisConfig) MockOnFailure() bool {
	return a.MockTranscriptOnFailure == nil || *a.MockTranscriptOnFailure
}
