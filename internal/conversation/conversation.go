// Package conversation provisions LiveKit rooms for live AI conversation
// practice: it creates the room, dispatches the voice agent, issues the
// participant's join token and watches for the agent to arrive.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"github.com/MrWong99/podium/internal/catalog"
	"github.com/MrWong99/podium/internal/observe"
)

var (
	// ErrNotConfigured is returned when LiveKit credentials are missing.
	ErrNotConfigured = errors.New("conversation: livekit is not configured")

	// ErrAgentTimeout is returned when the voice agent does not join in time.
	ErrAgentTimeout = errors.New("conversation: agent did not join in time")
)

// RoomClient is the subset of the LiveKit room service the package uses.
// [*lksdk.RoomServiceClient] satisfies it.
type RoomClient interface {
	CreateRoom(ctx context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error)
	DeleteRoom(ctx context.Context, req *livekit.DeleteRoomRequest) (*livekit.DeleteRoomResponse, error)
	ListParticipants(ctx context.Context, req *livekit.ListParticipantsRequest) (*livekit.ListParticipantsResponse, error)
}

// AgentDispatcher starts a named agent worker in a room.
// [*lksdk.AgentDispatchClient] satisfies it.
type AgentDispatcher interface {
	CreateDispatch(ctx context.Context, req *livekit.CreateAgentDispatchRequest) (*livekit.AgentDispatch, error)
}

// Config holds the LiveKit connection and agent settings.
type Config struct {
	URL       string
	APIKey    string
	APISecret string

	AgentName    string
	WaitTimeout  time.Duration
	PollInterval time.Duration
	TokenTTL     time.Duration
}

// Configured reports whether URL, key and secret are set.
func (c Config) Configured() bool {
	return c.URL != "" && c.APIKey != "" && c.APISecret != ""
}

// Room is a provisioned conversation the browser can join.
type Room struct {
	Name      string                  `json:"roomName"`
	Token     string                  `json:"token"`
	ServerURL string                  `json:"serverUrl"`
	Topic     catalog.Topic           `json:"topic"`
	Role      catalog.InterviewerRole `json:"interviewerRole"`
}

// roomMetadata is read by the voice agent when it joins.
type roomMetadata struct {
	Topic           string                  `json:"topic"`
	Difficulty      string                  `json:"difficulty"`
	Context         string                  `json:"context,omitempty"`
	InterviewerRole catalog.InterviewerRole `json:"interviewerRole"`
}

// Option configures a [Service].
type Option func(*Service)

// WithRoomClient replaces the LiveKit room service client.
func WithRoomClient(c RoomClient) Option {
	return func(s *Service) { s.rooms = c }
}

// WithAgentDispatcher replaces the LiveKit agent dispatch client.
func WithAgentDispatcher(d AgentDispatcher) Option {
	return func(s *Service) { s.dispatch = d }
}

// WithMetrics sets the metrics recorder. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service manages conversation rooms. It is safe for concurrent use.
type Service struct {
	cfg      Config
	rooms    RoomClient
	dispatch AgentDispatcher
	metrics  *observe.Metrics

	mu     sync.Mutex
	active map[string]struct{}
}

// New returns a service for cfg. When cfg is configured and no clients are
// injected, LiveKit server SDK clients are created.
func New(cfg Config, opts ...Option) *Service {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	s := &Service{
		cfg:    cfg,
		active: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if cfg.Configured() {
		host := httpHost(cfg.URL)
		if s.rooms == nil {
			s.rooms = lksdk.NewRoomServiceClient(host, cfg.APIKey, cfg.APISecret)
		}
		if s.dispatch == nil && cfg.AgentName != "" {
			s.dispatch = lksdk.NewAgentDispatchServiceClient(host, cfg.APIKey, cfg.APISecret)
		}
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// httpHost converts a ws(s):// LiveKit URL to the http(s) form the server
// API expects.
func httpHost(u string) string {
	switch {
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	}
	return u
}

// Configured reports whether rooms can be created.
func (s *Service) Configured() bool {
	return s.cfg.Configured() && s.rooms != nil
}

// ServerURL is the URL browsers connect to.
func (s *Service) ServerURL() string { return s.cfg.URL }

// RoomName returns a unique room name for topicID.
func RoomName(topicID string) string {
	return "conversation-" + topicID + "-" + uuid.NewString()[:8]
}

// CreateRoom creates a room for topic, dispatches the voice agent and issues
// a join token for identity. An empty identity gets a random one.
func (s *Service) CreateRoom(ctx context.Context, topic catalog.Topic, role catalog.InterviewerRole, identity string) (*Room, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	ctx, span := observe.StartSpan(ctx, "conversation.create_room")
	room, err := s.createRoom(ctx, topic, role, identity)
	observe.EndSpan(span, err)
	return room, err
}

func (s *Service) createRoom(ctx context.Context, topic catalog.Topic, role catalog.InterviewerRole, identity string) (*Room, error) {
	meta, err := json.Marshal(roomMetadata{
		Topic:           topic.Title,
		Difficulty:      topic.Difficulty,
		Context:         topic.Context,
		InterviewerRole: role,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: encode metadata: %w", err)
	}

	name := RoomName(topic.ID)
	if _, err := s.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:         name,
		EmptyTimeout: 300,
		Metadata:     string(meta),
	}); err != nil {
		return nil, fmt.Errorf("conversation: create room %q: %w", name, err)
	}
	s.track(ctx, name)

	if s.dispatch != nil {
		if _, err := s.dispatch.CreateDispatch(ctx, &livekit.CreateAgentDispatchRequest{
			AgentName: s.cfg.AgentName,
			Room:      name,
			Metadata:  string(meta),
		}); err != nil {
			s.cleanup(name)
			return nil, fmt.Errorf("conversation: dispatch agent %q: %w", s.cfg.AgentName, err)
		}
	}

	if identity == "" {
		identity = "user-" + uuid.NewString()[:8]
	}
	token, err := s.Token(name, identity)
	if err != nil {
		s.cleanup(name)
		return nil, err
	}

	observe.Logger(ctx).Info("conversation room created", "room", name, "topic", topic.ID, "role", role.ID)
	return &Room{Name: name, Token: token, ServerURL: s.cfg.URL, Topic: topic, Role: role}, nil
}

// Token issues a join token for identity scoped to room.
func (s *Service) Token(room, identity string) (string, error) {
	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	at.SetVideoGrant(&auth.VideoGrant{
		RoomJoin: true,
		Room:     room,
	}).
		SetIdentity(identity).
		SetValidFor(s.cfg.TokenTTL)
	jwt, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("conversation: sign token: %w", err)
	}
	return jwt, nil
}

// AgentActive reports whether an agent participant is in room.
func (s *Service) AgentActive(ctx context.Context, room string) (bool, error) {
	if !s.Configured() {
		return false, ErrNotConfigured
	}
	resp, err := s.rooms.ListParticipants(ctx, &livekit.ListParticipantsRequest{Room: room})
	if err != nil {
		return false, fmt.Errorf("conversation: list participants of %q: %w", room, err)
	}
	for _, p := range resp.GetParticipants() {
		if p.GetKind() == livekit.ParticipantInfo_AGENT {
			return true, nil
		}
	}
	return false, nil
}

// WaitForAgent polls room until an agent joins, the wait timeout elapses
// or ctx ends. Transient listing errors are retried.
func (s *Service) WaitForAgent(ctx context.Context, room string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	log := observe.Logger(ctx).With("room", room)
	for {
		ok, err := s.AgentActive(ctx, room)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Debug("agent poll failed", "err", err)
		case ok:
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: room %q after %s", ErrAgentTimeout, room, s.cfg.WaitTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// StartConversation creates a room and waits for the agent. When the agent
// does not arrive the room is deleted again.
func (s *Service) StartConversation(ctx context.Context, topic catalog.Topic, role catalog.InterviewerRole, identity string) (*Room, error) {
	room, err := s.CreateRoom(ctx, topic, role, identity)
	if err != nil {
		return nil, err
	}
	if err := s.WaitForAgent(ctx, room.Name); err != nil {
		s.cleanup(room.Name)
		return nil, err
	}
	observe.Logger(ctx).Info("AI conversation started", "room", room.Name)
	return room, nil
}

// EndConversation deletes room, disconnecting the agent and participants.
func (s *Service) EndConversation(ctx context.Context, room string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if _, err := s.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: room}); err != nil {
		return fmt.Errorf("conversation: delete room %q: %w", room, err)
	}
	s.untrack(ctx, room)
	return nil
}

// ActiveRooms returns the number of rooms created and not yet ended.
func (s *Service) ActiveRooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Close deletes every room still tracked. Used on shutdown.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	rooms := make([]string, 0, len(s.active))
	for r := range s.active {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	var errs []error
	for _, r := range rooms {
		if err := s.EndConversation(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// cleanup deletes a room after a failed start. It uses its own deadline so
// it still runs when the request context is already cancelled.
func (s *Service) cleanup(room string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.EndConversation(ctx, room); err != nil {
		observe.Logger(ctx).Warn("failed to delete abandoned room", "room", room, "err", err)
	}
}

func (s *Service) track(ctx context.Context, room string) {
	s.mu.Lock()
	_, dup := s.active[room]
	s.active[room] = struct{}{}
	s.mu.Unlock()
	if !dup {
		s.metrics.ActiveRooms.Add(ctx, 1)
	}
}

func (s *Service) untrack(ctx context.Context, room string) {
	s.mu.Lock()
	_, ok := s.active[room]
	delete(s.active, room)
	s.mu.Unlock()
	if ok {
		s.metrics.ActiveRooms.Add(ctx, -1)
	}
}
