// Package api serves Podium's HTTP surface: the practice catalog, speech
// analysis, session history, LiveKit conversation rooms, the head-pose
// detector and the real-time interruption stream.
//
// All handlers answer JSON. Error bodies keep the shape the web client
// expects: {"error": ...} for analysis and conversation routes and
// {"message": ...} for user and session routes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/catalog"
	"github.com/MrWong99/podium/internal/conversation"
	"github.com/MrWong99/podium/internal/health"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/pkg/history"
)

// DefaultMaxBodyBytes caps JSON request bodies. Recordings arrive base64
// encoded inside the body.
const DefaultMaxBodyBytes = 50 << 20

// SpeechAnalyzer runs the speech analysis pipeline.
type SpeechAnalyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Conversations provisions live AI conversation rooms.
type Conversations interface {
	Configured() bool
	StartConversation(ctx context.Context, topic catalog.Topic, role catalog.InterviewerRole, identity string) (*conversation.Room, error)
	EndConversation(ctx context.Context, room string) error
	AgentActive(ctx context.Context, room string) (bool, error)
}

// HeadPose controls the head-pose detector sidecar.
type HeadPose interface {
	Configured() bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
	ServerURL() string
}

// Config holds the HTTP behaviour settings.
type Config struct {
	// Environment is "development" or "production". Production enables the
	// security headers and the static file server.
	Environment string

	// CORSOrigins lists allowed browser origins. An entry may contain one
	// "*" wildcard, e.g. "https://*.github.dev".
	CORSOrigins []string

	// StaticDir is the built web client served in production.
	StaticDir string

	// MaxBodyBytes limits request bodies. Zero selects DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func (c Config) production() bool { return c.Environment == "production" }

// Option configures a [Server].
type Option func(*Server)

// WithAnalyzer sets the speech analysis pipeline.
func WithAnalyzer(a SpeechAnalyzer) Option {
	return func(s *Server) { s.analyzer = a }
}

// WithStore sets the session store. Defaults to an in-memory store.
func WithStore(st history.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithCatalog sets the practice catalog. Defaults to the built-in catalog.
func WithCatalog(h *catalog.Holder) Option {
	return func(s *Server) { s.catalog = h }
}

// WithConversations sets the LiveKit room service.
func WithConversations(c Conversations) Option {
	return func(s *Server) { s.conversations = c }
}

// WithHeadPose sets the head-pose detector. Practice sessions and AI
// conversations start it when it is configured.
func WithHeadPose(h HeadPose) Option {
	return func(s *Server) { s.headPose = h }
}

// WithHealth registers /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces time.Now for the real-time analyzer and health
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server routes HTTP requests to the application services.
type Server struct {
	cfg            Config
	analyzer       SpeechAnalyzer
	store          history.Store
	catalog        *catalog.Holder
	conversations  Conversations
	headPose       HeadPose
	health         *health.Handler
	metricsHandler http.Handler
	metrics        *observe.Metrics
	now            func() time.Time
	cors           *corsPolicy
}

// New creates a server. Missing services answer 503.
func New(cfg Config, opts ...Option) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.store == nil {
		s.store = history.NewMemStore()
	}
	if s.catalog == nil {
		s.catalog = catalog.NewHolder(catalog.Default())
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.cors = newCORSPolicy(cfg.CORSOrigins)
	return s
}

// SetCORSOrigins replaces the allowed origins. Safe to call while serving.
func (s *Server) SetCORSOrigins(origins []string) {
	s.cors.set(origins)
}

// Handler returns the root handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/vite.svg", http.StatusFound)
	})

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/categories/{categoryId}/questions", s.handleQuestions)
	mux.HandleFunc("POST /api/analyze-speech", s.handleAnalyzeSpeech)

	mux.HandleFunc("POST /api/head-pose/start", s.handleHeadPoseStart)
	mux.HandleFunc("POST /api/head-pose/stop", s.handleHeadPoseStop)
	mux.HandleFunc("GET /api/head-pose/status", s.handleHeadPoseStatus)

	mux.HandleFunc("GET /api/user/current", s.handleCurrentUser)
	mux.HandleFunc("GET /api/user/progress", s.handleProgress)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)

	mux.HandleFunc("GET /api/conversation/topics", s.handleTopics)
	mux.HandleFunc("GET /api/conversation/roles", s.handleRoles)
	mux.HandleFunc("POST /api/conversation/create-room", s.handleCreateRoom)
	mux.HandleFunc("POST /api/conversation/end", s.handleEndConversation)
	mux.HandleFunc("GET /api/conversation/status/{roomName}", s.handleConversationStatus)
	mux.HandleFunc("GET /api/conversation/analyze", s.handleAnalyzeStream)

	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	if s.cfg.production() && s.cfg.StaticDir != "" {
		mux.Handle("GET /", spaHandler(s.cfg.StaticDir))
	}

	var h http.Handler = mux
	h = limitBody(s.cfg.MaxBodyBytes)(h)
	if s.cfg.production() {
		h = securityHeaders(h)
	}
	h = s.cors.handler(h)
	h = observe.Middleware(s.metrics)(h)
	return h
}

type healthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Environment string `json:"environment"`
	Timestamp   string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Message:     "Speech Practice API is running",
		Environment: s.cfg.Environment,
		Timestamp:   s.now().UTC().Format(time.RFC3339Nano),
	})
}

// errorBody is the {"error": ...} shape used by analysis and conversation
// routes.
type errorBody struct {
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	SetupRequired bool   `json:"setupRequired,omitempty"`
}

// messageBody is the {"message": ...} shape used by user and session routes.
type messageBody struct {
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

// decodeJSON reads the request body into v. It writes the error response
// and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge, "request entity too large")
		return false
	}
	writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
	return false
}
