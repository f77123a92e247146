package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "openrouter", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"openai", "whisper", "deepgram"},
}

// LookupEnv matches the signature of [os.LookupEnv].
type LookupEnv func(key string) (string, bool)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. An empty path builds the configuration from the environment
// alone, which is how the server runs when deployed next to a .env file.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromReader(strings.NewReader(""))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, resolves environment
// references, applies defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	return LoadFromReaderEnv(r, os.LookupEnv)
}

// LoadFromReaderEnv is [LoadFromReader] with an explicit environment.
func LoadFromReaderEnv(r io.Reader, env LookupEnv) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyEnv(cfg, env)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references in s. Unset variables expand to "".
func expandEnv(s string, env LookupEnv) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		v, _ := env(m[2 : len(m)-1])
		return v
	})
}

// ApplyEnv expands ${VAR} references in secret and endpoint fields and fills
// empty fields from the well-known environment variables the web client's
// deployment documents (OPENAI_API_KEY, OPENROUTER_API_KEY, LIVEKIT_*,
// DATABASE_URL, PORT, APP_ENV / NODE_ENV).
func ApplyEnv(cfg *Config, env LookupEnv) {
	get := func(key string) string {
		v, _ := env(key)
		return strings.TrimSpace(v)
	}

	for _, e := range []*ProviderEntry{
		&cfg.Providers.LLM, &cfg.Providers.FallbackLLM,
		&cfg.Providers.STT, &cfg.Providers.FallbackSTT,
	} {
		e.APIKey = expandEnv(e.APIKey, env)
		e.BaseURL = expandEnv(e.BaseURL, env)
	}
	cfg.Database.PostgresDSN = expandEnv(cfg.Database.PostgresDSN, env)
	cfg.LiveKit.URL = expandEnv(cfg.LiveKit.URL, env)
	cfg.LiveKit.APIKey = expandEnv(cfg.LiveKit.APIKey, env)
	cfg.LiveKit.APISecret = expandEnv(cfg.LiveKit.APISecret, env)

	openaiKey := get("OPENAI_API_KEY")
	if openaiKey != "" {
		if !cfg.Providers.LLM.Configured() {
			cfg.Providers.LLM.Name = "openai"
		}
		if !cfg.Providers.STT.Configured() {
			cfg.Providers.STT.Name = "openai"
		}
		for _, e := range []*ProviderEntry{&cfg.Providers.LLM, &cfg.Providers.STT} {
			if e.Name == "openai" && e.APIKey == "" {
				e.APIKey = openaiKey
			}
		}
	}
	if key := get("OPENROUTER_API_KEY"); key != "" {
		// Without a primary model OpenRouter serves every request.
		switch {
		case !cfg.Providers.LLM.Configured():
			cfg.Providers.LLM.Name = "openrouter"
		case cfg.Providers.LLM.Name != "openrouter" && !cfg.Providers.FallbackLLM.Configured():
			cfg.Providers.FallbackLLM.Name = "openrouter"
		}
		for _, e := range []*ProviderEntry{&cfg.Providers.LLM, &cfg.Providers.FallbackLLM} {
			if e.Name == "openrouter" && e.APIKey == "" {
				e.APIKey = key
			}
		}
	}

	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = get(key)
		}
	}
	fill(&cfg.LiveKit.URL, "LIVEKIT_URL")
	fill(&cfg.LiveKit.APIKey, "LIVEKIT_API_KEY")
	fill(&cfg.LiveKit.APISecret, "LIVEKIT_API_SECRET")
	fill(&cfg.LiveKit.AgentName, "LIVEKIT_AGENT_NAME")
	fill(&cfg.Database.PostgresDSN, "DATABASE_URL")
	fill(&cfg.HeadPose.ServerURL, "HEAD_POSE_URL")

	if cfg.Server.ListenAddr == "" {
		if port := get("PORT"); port != "" {
			cfg.Server.ListenAddr = ":" + port
		}
	}
	if cfg.Server.Environment == "" {
		env := get("APP_ENV")
		if env == "" {
			env = get("NODE_ENV")
		}
		cfg.Server.Environment = Environment(strings.ToLower(env))
	}
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = EnvDevelopment
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(cfg.Server.CORSOrigins) == 0 && cfg.Server.Environment == EnvDevelopment {
		cfg.Server.CORSOrigins = slices.Clone(DefaultDevOrigins)
	}
	if cfg.Providers.LLM.Name == "openai" && cfg.Providers.LLM.Model == "" {
		cfg.Providers.LLM.Model = DefaultLLMModel
	}
	if cfg.Providers.STT.Name == "openai" && cfg.Providers.STT.Model == "" {
		cfg.Providers.STT.Model = DefaultSTTModel
	}
	if cfg.LiveKit.AgentName == "" {
		cfg.LiveKit.AgentName = DefaultAgentName
	}
	if cfg.LiveKit.AgentWaitTimeout <= 0 {
		cfg.LiveKit.AgentWaitTimeout = DefaultAgentWaitTimeout
	}
	if cfg.LiveKit.AgentPollInterval <= 0 {
		cfg.LiveKit.AgentPollInterval = DefaultAgentPollInterval
	}
	if cfg.LiveKit.TokenTTL <= 0 {
		cfg.LiveKit.TokenTTL = DefaultTokenTTL
	}
	if cfg.HeadPose.ServerURL == "" {
		cfg.HeadPose.ServerURL = DefaultHeadPoseURL
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found and logs
// warnings for configurations that start but run degraded.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.Environment != "" && !cfg.Server.Environment.IsValid() {
		errs = append(errs, fmt.Errorf("server.environment %q is invalid; valid values: development, production", cfg.Server.Environment))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}
	for i, o := range cfg.Server.CORSOrigins {
		if strings.Count(o, "*") > 1 {
			errs = append(errs, fmt.Errorf("server.cors_origins[%d] %q may contain at most one wildcard", i, o))
		}
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("llm", cfg.Providers.FallbackLLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("stt", cfg.Providers.FallbackSTT.Name)

	for _, p := range []struct {
		field string
		entry ProviderEntry
	}{
		{"providers.llm", cfg.Providers.LLM},
		{"providers.fallback_llm", cfg.Providers.FallbackLLM},
		{"providers.stt", cfg.Providers.STT},
		{"providers.fallback_stt", cfg.Providers.FallbackSTT},
	} {
		if p.entry.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must not be negative", p.field))
		}
		if p.entry.Name == "whisper" && p.entry.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s: whisper requires base_url pointing at a whisper-server", p.field))
		}
	}
	if cfg.Providers.FallbackLLM.Configured() && !cfg.Providers.LLM.Configured() {
		errs = append(errs, errors.New("providers.fallback_llm requires providers.llm"))
	}
	if cfg.Providers.FallbackSTT.Configured() && !cfg.Providers.STT.Configured() {
		errs = append(errs, errors.New("providers.fallback_stt requires providers.stt"))
	}
	if cfg.Providers.CircuitBreaker.MaxFailures < 0 {
		errs = append(errs, errors.New("providers.circuit_breaker.max_failures must not be negative"))
	}

	if t := cfg.Analysis.FeedbackTemperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("analysis.feedback_temperature %.2f is out of range [0, 2]", t))
	}
	if cfg.Analysis.FeedbackMaxTokens < 0 {
		errs = append(errs, errors.New("analysis.feedback_max_tokens must not be negative"))
	}
	if hp := cfg.HeadPose; hp.StartTimeout < 0 || hp.StopTimeout < 0 {
		errs = append(errs, errors.New("head_pose timeouts must not be negative"))
	}
	if len(cfg.HeadPose.Command) > 0 && cfg.HeadPose.Command[0] == "" {
		errs = append(errs, errors.New("head_pose.command must start with an executable"))
	}

	if !cfg.Providers.STT.Configured() {
		slog.Warn("no transcription provider configured (set OPENAI_API_KEY); analyses will use the placeholder transcript")
	}
	if !cfg.Providers.LLM.Configured() {
		slog.Warn("no feedback LLM configured (set OPENAI_API_KEY); analyses will return generic feedback")
	}
	lk := cfg.LiveKit
	if !lk.Configured() && (lk.URL != "" || lk.APIKey != "" || lk.APISecret != "") {
		slog.Warn("livekit is partially configured; AI conversations stay disabled until url, api_key and api_secret are all set")
	}
	if cfg.Database.PostgresDSN == "" {
		slog.Info("database.postgres_dsn is empty; practice sessions are kept in memory")
	}
	if cfg.Server.Environment == EnvProduction && len(cfg.Server.CORSOrigins) == 0 {
		slog.Warn("server.cors_origins is empty in production; cross-origin browser requests will be rejected")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
