package conversation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/livekit/protocol/livekit"
	"go.uber.org/goleak"

	"github.com/MrWong99/podium/internal/catalog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRooms is an in-memory RoomClient. The agent joins after agentAfter
// ListParticipants calls; a negative value means never.
type fakeRooms struct {
	mu         sync.Mutex
	created    []*livekit.CreateRoomRequest
	deleted    []string
	listCalls  int
	agentAfter int
	listErr    error
	createErr  error
}

func (f *fakeRooms) CreateRoom(_ context.Context, req *livekit.CreateRoomRequest) (*livekit.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &livekit.Room{Name: req.Name, Metadata: req.Metadata}, nil
}

func (f *fakeRooms) DeleteRoom(_ context.Context, req *livekit.DeleteRoomRequest) (*livekit.DeleteRoomResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, req.Room)
	return &livekit.DeleteRoomResponse{}, nil
}

func (f *fakeRooms) ListParticipants(_ context.Context, req *livekit.ListParticipantsRequest) (*livekit.ListParticipantsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	resp := &livekit.ListParticipantsResponse{
		Participants: []*livekit.ParticipantInfo{
			{Identity: "user-1", Kind: livekit.ParticipantInfo_STANDARD},
		},
	}
	if f.agentAfter >= 0 && f.listCalls > f.agentAfter {
		resp.Participants = append(resp.Participants, &livekit.ParticipantInfo{
			Identity: "agent-" + req.Room,
			Kind:     livekit.ParticipantInfo_AGENT,
		})
	}
	return resp, nil
}

type fakeDispatch struct {
	mu   sync.Mutex
	reqs []*livekit.CreateAgentDispatchRequest
	err  error
}

func (f *fakeDispatch) CreateDispatch(_ context.Context, req *livekit.CreateAgentDispatchRequest) (*livekit.AgentDispatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.reqs = append(f.reqs, req)
	return &livekit.AgentDispatch{Id: "AD_1", AgentName: req.AgentName, Room: req.Room}, nil
}

var testCfg = Config{
	URL:          "wss://podium.livekit.cloud",
	APIKey:       "APIkey123",
	APISecret:    "secretsecretsecretsecretsecret12",
	AgentName:    "podium-interviewer",
	WaitTimeout:  200 * time.Millisecond,
	PollInterval: 10 * time.Millisecond,
}

func newTestService(rooms *fakeRooms, d *fakeDispatch) *Service {
	return New(testCfg, WithRoomClient(rooms), WithAgentDispatcher(d))
}

func testTopic(t *testing.T) (catalog.Topic, catalog.InterviewerRole) {
	t.Helper()
	cat := catalog.Default()
	topics := cat.Topics()
	if len(topics) == 0 {
		t.Fatal("default catalog has no topics")
	}
	return topics[0], cat.Role("tough")
}

func TestConfigured(t *testing.T) {
	t.Parallel()
	if New(Config{}).Configured() {
		t.Error("empty config should not be configured")
	}
	if New(Config{URL: "wss://x", APIKey: "k"}).Configured() {
		t.Error("config without secret should not be configured")
	}
	if !newTestService(&fakeRooms{}, nil).Configured() {
		t.Error("full config should be configured")
	}
}

func TestNotConfigured(t *testing.T) {
	t.Parallel()
	s := New(Config{})
	ctx := context.Background()
	topic, role := testTopic(t)

	if _, err := s.CreateRoom(ctx, topic, role, ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CreateRoom err = %v, want ErrNotConfigured", err)
	}
	if err := s.WaitForAgent(ctx, "r"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("WaitForAgent err = %v, want ErrNotConfigured", err)
	}
	if err := s.EndConversation(ctx, "r"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("EndConversation err = %v, want ErrNotConfigured", err)
	}
}

func TestRoomName(t *testing.T) {
	t.Parallel()
	a, b := RoomName("salary-negotiation"), RoomName("salary-negotiation")
	if !strings.HasPrefix(a, "conversation-salary-negotiation-") {
		t.Errorf("RoomName = %q", a)
	}
	if len(a) != len("conversation-salary-negotiation-")+8 {
		t.Errorf("RoomName suffix length wrong: %q", a)
	}
	if a == b {
		t.Error("RoomName should be unique")
	}
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	rooms, d := &fakeRooms{agentAfter: 0}, &fakeDispatch{}
	s := newTestService(rooms, d)
	topic, role := testTopic(t)

	room, err := s.CreateRoom(context.Background(), topic, role, "alice")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.ServerURL != testCfg.URL {
		t.Errorf("ServerURL = %q", room.ServerURL)
	}
	if len(rooms.created) != 1 || rooms.created[0].Name != room.Name {
		t.Fatalf("created = %+v", rooms.created)
	}

	var meta roomMetadata
	if err := json.Unmarshal([]byte(rooms.created[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.Topic != topic.Title || meta.Difficulty != topic.Difficulty {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.InterviewerRole.ID != "tough" {
		t.Errorf("metadata role = %q, want tough", meta.InterviewerRole.ID)
	}

	if len(d.reqs) != 1 || d.reqs[0].AgentName != "podium-interviewer" || d.reqs[0].Room != room.Name {
		t.Errorf("dispatch = %+v", d.reqs)
	}
	if got := s.ActiveRooms(); got != 1 {
		t.Errorf("ActiveRooms = %d, want 1", got)
	}

	claims := decodeClaims(t, room.Token)
	if claims.Sub != "alice" {
		t.Errorf("token sub = %q, want alice", claims.Sub)
	}
	if claims.Video.Room != room.Name || !claims.Video.RoomJoin {
		t.Errorf("token video grant = %+v", claims.Video)
	}
}

func TestCreateRoomGeneratesIdentity(t *testing.T) {
	t.Parallel()
	s := newTestService(&fakeRooms{}, &fakeDispatch{})
	topic, role := testTopic(t)
	room, err := s.CreateRoom(context.Background(), topic, role, "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if sub := decodeClaims(t, room.Token).Sub; !strings.HasPrefix(sub, "user-") {
		t.Errorf("generated identity = %q", sub)
	}
}

func TestCreateRoomDispatchFailureDeletesRoom(t *testing.T) {
	t.Parallel()
	rooms := &fakeRooms{}
	s := newTestService(rooms, &fakeDispatch{err: errors.New("no workers")})
	topic, role := testTopic(t)

	if _, err := s.CreateRoom(context.Background(), topic, role, ""); err == nil {
		t.Fatal("expected error")
	}
	if len(rooms.deleted) != 1 {
		t.Errorf("deleted = %v, want the created room", rooms.deleted)
	}
	if s.ActiveRooms() != 0 {
		t.Errorf("ActiveRooms = %d, want 0", s.ActiveRooms())
	}
}

func TestCreateRoomError(t *testing.T) {
	t.Parallel()
	s := newTestService(&fakeRooms{createErr: errors.New("quota")}, &fakeDispatch{})
	topic, role := testTopic(t)
	if _, err := s.CreateRoom(context.Background(), topic, role, ""); err == nil || !strings.Contains(err.Error(), "quota") {
		t.Errorf("err = %v, want quota error", err)
	}
}

func TestWaitForAgent(t *testing.T) {
	t.Parallel()
	rooms := &fakeRooms{agentAfter: 3}
	s := newTestService(rooms, nil)

	if err := s.WaitForAgent(context.Background(), "r1"); err != nil {
		t.Fatalf("WaitForAgent: %v", err)
	}
	if rooms.listCalls != 4 {
		t.Errorf("listCalls = %d, want 4", rooms.listCalls)
	}
}

func TestWaitForAgentTimeout(t *testing.T) {
	t.Parallel()
	s := newTestService(&fakeRooms{agentAfter: -1}, nil)

	start := time.Now()
	err := s.WaitForAgent(context.Background(), "r1")
	if !errors.Is(err, ErrAgentTimeout) {
		t.Fatalf("err = %v, want ErrAgentTimeout", err)
	}
	if el := time.Since(start); el < testCfg.WaitTimeout {
		t.Errorf("returned after %s, before the wait timeout", el)
	}
}

func TestWaitForAgentRetriesListErrors(t *testing.T) {
	t.Parallel()
	rooms := &fakeRooms{agentAfter: -1, listErr: errors.New("unavailable")}
	s := newTestService(rooms, nil)

	if err := s.WaitForAgent(context.Background(), "r1"); !errors.Is(err, ErrAgentTimeout) {
		t.Fatalf("err = %v, want ErrAgentTimeout", err)
	}
	if rooms.listCalls < 2 {
		t.Errorf("listCalls = %d, want retries", rooms.listCalls)
	}
}

func TestWaitForAgentCancelled(t *testing.T) {
	t.Parallel()
	s := newTestService(&fakeRooms{agentAfter: -1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.WaitForAgent(ctx, "r1"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStartConversation(t *testing.T) {
	t.Parallel()
	rooms := &fakeRooms{agentAfter: 1}
	s := newTestService(rooms, &fakeDispatch{})
	topic, role := testTopic(t)

	room, err := s.StartConversation(context.Background(), topic, role, "")
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	ok, err := s.AgentActive(context.Background(), room.Name)
	if err != nil || !ok {
		t.Errorf("AgentActive = %v, %v", ok, err)
	}
	if len(rooms.deleted) != 0 {
		t.Errorf("deleted = %v, want none", rooms.deleted)
	}
}

func TestStartConversationAgentTimeoutDeletesRoom(t *testing.T) {
	t.Parallel()
	rooms := &fakeRooms{agentAfter: -1}
	s := newTestService(rooms, &fakeDispatch{})
	topic, role := testTopic(t)

	_, err := s.StartConversation(context.Background(), topic, role, "")
	if !errors.Is(err, ErrAgentTimeout) {
		t.Fatalf("err = %v, want ErrAgentTimeout", err)
	}
	if len(rooms.deleted) != 1 || rooms.deleted[0] != rooms.created[0].Name {
		t.Errorf("deleted = %v, want %q", rooms.deleted, rooms.created[0].Name)
	}
	if s.ActiveRooms() != 0 {
		t.Errorf("ActiveRooms = %d, want 0", s.ActiveRooms())
	}
}

func TestEndConversationAndClose(t *testing.T) {
	t.Parallel()
	rooms := &fakeRooms{}
	s := newTestService(rooms, &fakeDispatch{})
	topic, role := testTopic(t)
	ctx := context.Background()

	r1, err := s.CreateRoom(ctx, topic, role, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateRoom(ctx, topic, role, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.EndConversation(ctx, r1.Name); err != nil {
		t.Fatalf("EndConversation: %v", err)
	}
	if s.ActiveRooms() != 1 {
		t.Errorf("ActiveRooms = %d, want 1", s.ActiveRooms())
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.ActiveRooms() != 0 || len(rooms.deleted) != 2 {
		t.Errorf("after Close: active=%d deleted=%v", s.ActiveRooms(), rooms.deleted)
	}
}

func TestHTTPHost(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"wss://a.livekit.cloud": "https://a.livekit.cloud",
		"ws://localhost:7880":   "http://localhost:7880",
		"https://b.example":     "https://b.example",
	}
	for in, want := range tests {
		if got := httpHost(in); got != want {
			t.Errorf("httpHost(%q) = %q, want %q", in, got, want)
		}
	}
}

type tokenClaims struct {
	Sub   string `json:"sub"`
	Video struct {
		Room     string `json:"room"`
		RoomJoin bool   `json:"roomJoin"`
	} `json:"video"`
}

func decodeClaims(t *testing.T, token string) tokenClaims {
	t.Helper()
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token %q is not a JWT", token)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var c tokenClaims
	if err := json.Unmarshal(payload, &c); err != nil {
		t.Fatalf("unmarshal claims: %v", err)
	}
	return c
}
