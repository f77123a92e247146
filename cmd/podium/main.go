// Command podium is the main entry point for the speech practice server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/podium/internal/app"
	"github.com/MrWong99/podium/internal/config"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/internal/resilience"
	"github.com/MrWong99/podium/pkg/provider/llm"
	"github.com/MrWong99/podium/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/podium/pkg/provider/llm/openai"
	"github.com/MrWong99/podium/pkg/provider/stt"
	"github.com/MrWong99/podium/pkg/provider/stt/deepgram"
	oaistt "github.com/MrWong99/podium/pkg/provider/stt/openai"
	"github.com/MrWong99/podium/pkg/provider/stt/whisper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file (empty: environment only)")
	watch := flag.Bool("watch", true, "reload hot-reloadable settings when the config file changes")
	flag.Parse()
	explicit := false
	flag.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "config" })

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, path, err := loadConfig(*configPath, explicit)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "podium: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "podium: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Slog())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if path == "" {
		slog.Info("no config file, configuring from environment variables")
	}
	slog.Info("podium starting",
		"version", version,
		"config", path,
		"listen_addr", cfg.Server.ListenAddr,
		"environment", cfg.Server.Environment,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		Environment:    string(cfg.Server.Environment),
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg, metrics)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	opts := []app.Option{
		app.WithTelemetry(tel),
		app.WithMetrics(metrics),
		app.WithLogLevel(level),
	}
	if *watch && path != "" {
		opts = append(opts, app.WithConfigWatch(path))
	}

	application, err := app.New(ctx, cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

const defaultConfigPath = "config.yaml"

// loadConfig loads the config file at path and returns the path it used. A
// missing file at the default location falls back to environment-only
// configuration and returns an empty path; an explicit -config must exist.
func loadConfig(path string, explicit bool) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil || explicit || path == "" || !errors.Is(err, os.ErrNotExist) {
		return cfg, path, err
	}
	cfg, err = config.Load("")
	return cfg, "", err
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders lists the implementations that ship with podium. Used for
// startup logging.
var builtinProviders = map[string][]string{
	"llm": {"openai", "openrouter", "anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "ollama"},
	"stt": {"openai", "whisper", "deepgram"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, oaillm.WithTimeout(entry.Timeout))
		}
		if org := entry.OptString("organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterLLM("openrouter", func(entry config.ProviderEntry) (llm.Provider, error) {
		model := entry.Model
		if model == "" {
			model = anyllm.DefaultOpenRouterModel
		}
		return anyllm.NewOpenRouter(model, anyllmOptions(entry)...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "ollama",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			return anyllm.New(providerName, entry.Model, anyllmOptions(entry)...)
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, oaistt.WithTimeout(entry.Timeout))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.OptString("language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := entry.OptString("language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

func anyllmOptions(entry config.ProviderEntry) []anyllmlib.Option {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return opts
}

// buildProviders instantiates the primary and fallback providers named in
// cfg. When a fallback is configured the pair is wrapped in a circuit-broken
// fallback group. Every concrete provider is instrumented individually so
// per-backend latency and error counts stay visible.
func buildProviders(cfg *config.Config, reg *config.Registry, m *observe.Metrics) (*app.Providers, error) {
	fbCfg := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Providers.CircuitBreaker.MaxFailures,
			ResetTimeout: cfg.Providers.CircuitBreaker.ResetTimeout,
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("provider circuit breaker transition", "provider", name, "from", from.String(), "to", to.String())
				m.RecordBreakerTransition(name, to.String())
			},
		},
	}

	ps := &app.Providers{}

	if p, err := createLLM(reg, cfg.Providers.LLM, m); err != nil {
		return nil, err
	} else if p != nil {
		ps.LLM = p
		fb, err := createLLM(reg, cfg.Providers.FallbackLLM, m)
		if err != nil {
			return nil, err
		}
		if fb != nil {
			group := resilience.NewLLMFallback(p, cfg.Providers.LLM.Name, fbCfg)
			group.AddFallback(cfg.Providers.FallbackLLM.Name, fb)
			ps.LLM = group
		}
	}

	if p, err := createSTT(reg, cfg.Providers.STT, m); err != nil {
		return nil, err
	} else if p != nil {
		ps.STT = p
		fb, err := createSTT(reg, cfg.Providers.FallbackSTT, m)
		if err != nil {
			return nil, err
		}
		if fb != nil {
			group := resilience.NewSTTFallback(p, cfg.Providers.STT.Name, fbCfg)
			group.AddFallback(cfg.Providers.FallbackSTT.Name, fb)
			ps.STT = group
		}
	}

	return ps, nil
}

// createLLM returns nil, nil when entry is not configured.
func createLLM(reg *config.Registry, entry config.ProviderEntry, m *observe.Metrics) (llm.Provider, error) {
	if !entry.Configured() {
		return nil, nil
	}
	p, err := reg.CreateLLM(entry)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)
	return observe.InstrumentLLM(p, entry.Name, m), nil
}

// createSTT returns nil, nil when entry is not configured.
func createSTT(reg *config.Registry, entry config.ProviderEntry, m *observe.Metrics) (stt.Provider, error) {
	if !entry.Configured() {
		return nil, nil
	}
	p, err := reg.CreateSTT(entry)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", entry.Name, "model", entry.Model)
	return observe.InstrumentSTT(p, entry.Name, m), nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Podium · startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("LLM", providerLabel(cfg.Providers.LLM))
	printRow("LLM fallback", providerLabel(cfg.Providers.FallbackLLM))
	printRow("STT", providerLabel(cfg.Providers.STT))
	printRow("STT fallback", providerLabel(cfg.Providers.FallbackSTT))
	if cfg.Database.PostgresDSN != "" {
		printRow("Sessions", "postgres")
	} else {
		printRow("Sessions", "in-memory")
	}
	if cfg.LiveKit.Configured() {
		printRow("LiveKit", "configured")
	} else {
		printRow("LiveKit", "(disabled)")
	}
	printRow("Environment", string(cfg.Server.Environment))
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func providerLabel(e config.ProviderEntry) string {
	switch {
	case e.Name == "":
		return "(not configured)"
	case e.Model != "":
		return e.Name + " / " + e.Model
	default:
		return e.Name
	}
}

func printRow(kind, value string) {
	if len([]rune(value)) > 19 {
		value = string([]rune(value)[:16]) + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}
