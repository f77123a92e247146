// Package app wires all Podium subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and watches the config file, and Shutdown
// tears everything down in order.
//
// For testing, inject implementations via functional options (WithStore,
// WithConversations, WithListener, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/api"
	"github.com/MrWong99/podium/internal/catalog"
	"github.com/MrWong99/podium/internal/config"
	"github.com/MrWong99/podium/internal/conversation"
	"github.com/MrWong99/podium/internal/headpose"
	"github.com/MrWong99/podium/internal/health"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/pkg/history"
	"github.com/MrWong99/podium/pkg/history/postgres"
	"github.com/MrWong99/podium/pkg/provider/llm"
	"github.com/MrWong99/podium/pkg/provider/stt"
)

// ShutdownTimeout bounds graceful HTTP draining once Run's context ends.
const ShutdownTimeout = 15 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry,
// usually as fallback chains.
type Providers struct {
	LLM llm.Provider
	STT stt.Provider
}

// conversationService is what the app needs from the LiveKit room service.
type conversationService interface {
	api.Conversations
	Close(ctx context.Context) error
}

// headPoseService supervises the head-pose detector process.
type headPoseService interface {
	api.HeadPose
	Close(ctx context.Context) error
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	store         history.Store
	catalog       *catalog.Holder
	conversations conversationService
	headPose      headPoseService
	analysis      *analysis.Service
	api           *api.Server
	health        *health.Handler
	telemetry     *observe.Telemetry
	metrics       *observe.Metrics
	logLevel      *slog.LevelVar

	configPath  string
	watcherOpts []config.WatcherOption
	watcher     *config.Watcher

	listener net.Listener
	server   *http.Server

	// closers are called in order during Shutdown.
	closers []func(context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a session store instead of creating one from config.
// The app closes it on Shutdown.
func WithStore(s history.Store) Option {
	return func(a *App) { a.store = s }
}

// WithConversations injects the LiveKit room service.
func WithConversations(c conversationService) Option {
	return func(a *App) { a.conversations = c }
}

// WithHeadPose injects the head-pose detector supervisor.
func WithHeadPose(h headPoseService) Option {
	return func(a *App) { a.headPose = h }
}

// WithTelemetry exposes t's Prometheus handler on /metrics and shuts it
// down with the app.
func WithTelemetry(t *observe.Telemetry) Option {
	return func(a *App) { a.telemetry = t }
}

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevel lets config reloads change the level of the default logger.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = lv }
}

// WithListener serves on l instead of listening on server.listen_addr.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// WithConfigWatch enables hot reload of the config file at path.
func WithConfigWatch(path string, opts ...config.WatcherOption) Option {
	return func(a *App) {
		a.configPath = path
		a.watcherOpts = opts
	}
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Practice catalog ──────────────────────────────────────────────
	cat, err := catalog.Load(cfg.Practice.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("app: load catalog: %w", err)
	}
	a.catalog = catalog.NewHolder(cat)

	// ── 2. Session store ─────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Conversation rooms ────────────────────────────────────────────
	a.initConversations()

	// ── 4. Head-pose detector ────────────────────────────────────────────
	a.initHeadPose()

	// ── 5. Analysis pipeline ─────────────────────────────────────────────
	a.initAnalysis()

	// ── 6. HTTP surface ──────────────────────────────────────────────────
	a.initAPI()

	// ── 7. Config watcher ────────────────────────────────────────────────
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.onConfigChange, a.watcherOpts...)
		if err != nil {
			return nil, fmt.Errorf("app: start config watcher: %w", err)
		}
		a.watcher = w
	}

	// Rooms and the detector stop before the store closes. Telemetry
	// flushes last.
	a.closers = append(a.closers, a.conversations.Close, a.headPose.Close, a.closeStore)
	if a.telemetry != nil {
		a.closers = append(a.closers, a.telemetry.Shutdown)
	}
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore connects to Postgres, or keeps sessions in memory when no DSN
// is configured.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Database.PostgresDSN
	if dsn == "" {
		slog.Info("no database configured, keeping sessions in memory")
		a.store = history.NewMemStore()
		return nil
	}

	var opts []postgres.Option
	if a.cfg.Database.MaxConns > 0 {
		opts = append(opts, postgres.WithMaxConns(a.cfg.Database.MaxConns))
	}
	store, err := postgres.NewStore(ctx, dsn, opts...)
	if err != nil {
		return err
	}
	a.store = store
	slog.Info("connected to session database")
	return nil
}

// initConversations creates the LiveKit room service if one wasn't injected.
func (a *App) initConversations() {
	if a.conversations == nil {
		lk := a.cfg.LiveKit
		a.conversations = conversation.New(conversation.Config{
			URL:          lk.URL,
			APIKey:       lk.APIKey,
			APISecret:    lk.APISecret,
			AgentName:    lk.AgentName,
			WaitTimeout:  lk.AgentWaitTimeout,
			PollInterval: lk.AgentPollInterval,
			TokenTTL:     lk.TokenTTL,
		}, conversation.WithMetrics(a.metrics))
	}
	if !a.conversations.Configured() {
		slog.Warn("LiveKit not configured, AI conversations disabled")
	}
}

func (a *App) closeStore(context.Context) error {
	a.store.Close()
	return nil
}

// initHeadPose creates the detector supervisor if one wasn't injected.
func (a *App) initHeadPose() {
	if a.headPose != nil {
		return
	}
	hp := a.cfg.HeadPose
	a.headPose = headpose.New(headpose.Config{
		Command:      hp.Command,
		Dir:          hp.Dir,
		Env:          hp.Env,
		ServerURL:    hp.ServerURL,
		StartTimeout: hp.StartTimeout,
		StopTimeout:  hp.StopTimeout,
	})
	if !a.headPose.Configured() {
		slog.Info("head pose detector command not configured, eye contact tracking disabled")
	}
}

func (a *App) initAnalysis() {
	an := a.cfg.Analysis
	a.analysis = analysis.NewService(
		analysis.WithTranscriber(a.providers.STT),
		analysis.WithCoach(analysis.NewCoach(a.providers.LLM, an.FeedbackTemperature, an.FeedbackMaxTokens)),
		analysis.WithStore(a.store),
		analysis.WithCatalog(a.catalog),
		analysis.WithMetrics(a.metrics),
		analysis.WithMockTranscript(an.MockOnFailure()),
		analysis.WithLanguage(an.Language),
	)
}

// initAPI builds the health checks and the HTTP server.
func (a *App) initAPI() {
	a.health = health.New(a.checkers()...)

	opts := []api.Option{
		api.WithAnalyzer(a.analysis),
		api.WithStore(a.store),
		api.WithCatalog(a.catalog),
		api.WithConversations(a.conversations),
		api.WithHeadPose(a.headPose),
		api.WithHealth(a.health),
		api.WithMetrics(a.metrics),
	}
	if a.telemetry != nil {
		opts = append(opts, api.WithMetricsHandler(a.telemetry.MetricsHandler()))
	}
	srv := a.cfg.Server
	a.api = api.New(api.Config{
		Environment:  string(srv.Environment),
		CORSOrigins:  srv.CORSOrigins,
		StaticDir:    srv.StaticDir,
		MaxBodyBytes: srv.MaxBodyBytes,
	}, opts...)

	a.server = &http.Server{
		Addr:              srv.ListenAddr,
		Handler:           a.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// checkers returns the readiness checks. The database is required; the
// providers and LiveKit only degrade the service.
func (a *App) checkers() []health.Checker {
	cs := []health.Checker{{
		Name:  "database",
		Check: a.store.Ping,
	}}
	cs = append(cs,
		health.Checker{
			Name:     "stt",
			Optional: true,
			Check:    configured(a.providers.STT != nil, "no transcription provider configured"),
		},
		health.Checker{
			Name:     "llm",
			Optional: true,
			Check:    configured(a.providers.LLM != nil, "no feedback model configured"),
		},
		health.Checker{
			Name:     "livekit",
			Optional: true,
			Check:    configured(a.conversations.Configured(), "livekit credentials missing"),
		},
	)
	return cs
}

func configured(ok bool, msg string) func(context.Context) error {
	err := errors.New(msg)
	return func(context.Context) error {
		if ok {
			return nil
		}
		return err
	}
}

// ─── Config reload ───────────────────────────────────────────────────────────

// onConfigChange applies the hot-reloadable parts of a changed config.
func (a *App) onConfigChange(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.Empty() {
		return
	}

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(d.NewLogLevel.Slog())
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.CatalogChanged {
		if err := a.catalog.Reload(d.NewCatalogFile); err != nil {
			slog.Warn("catalog reload failed, keeping previous catalog", "path", d.NewCatalogFile, "err", err)
		} else {
			slog.Info("practice catalog reloaded", "path", d.NewCatalogFile)
		}
	}
	if d.CORSChanged {
		a.api.SetCORSOrigins(new.Server.CORSOrigins)
		slog.Info("CORS origins updated", "origins", new.Server.CORSOrigins)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes take effect after restart", "fields", d.RestartRequired)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP and watches the config file until ctx is cancelled or the
// server fails. When ctx is done, Run drains in-flight requests for up to
// [ShutdownTimeout] and returns context.Canceled (or the underlying cause).
func (a *App) Run(ctx context.Context) error {
	l := a.listener
	if l == nil {
		var err error
		l, err = net.Listen("tcp", a.server.Addr)
		if err != nil {
			return fmt.Errorf("app: listen on %s: %w", a.server.Addr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ServeTLS(l, tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.Serve(l)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve http: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(sctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
		}
		return nil
	})

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	slog.Info("app running", "addr", l.Addr().String(), "environment", a.cfg.Server.Environment)

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.watcher != nil {
			a.watcher.Stop()
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// Handler returns the root HTTP handler. Used by tests.
func (a *App) Handler() http.Handler { return a.server.Handler }
