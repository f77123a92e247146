package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/observe"
)

// streamFrame is a transcript update from the client.
type streamFrame struct {
	Transcript string `json:"transcript"`
	Speaking   bool   `json:"speaking"`
}

// Stream reply types.
const (
	replyProgress = "progress"
	replyTurn     = "turn"
)

// streamReply answers every frame. Message is the interviewer's line when
// the analysis calls for an interruption.
type streamReply struct {
	Type     string                `json:"type"`
	Analysis analysis.LiveAnalysis `json:"analysis"`
	Message  string                `json:"message,omitempty"`
}

// handleAnalyzeStream upgrades to a WebSocket and applies the requested
// interviewer role's interruption policy to the transcript updates the
// client sends. Query parameters: role (default standard) and topic, whose
// keywords enable off-topic detection.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	cat := s.catalog.Get()
	role := cat.Role(r.URL.Query().Get("role"))
	var opts []analysis.AnalyzerOption
	if topic, ok := cat.Topic(r.URL.Query().Get("topic")); ok {
		opts = append(opts, analysis.WithTopicKeywords(topic.Keywords...))
	}
	analyzer := analysis.NewAnalyzer(role, opts...)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cors.originPatterns(),
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)

	log := observe.Logger(ctx).With("role", role.ID)
	log.Debug("analysis stream opened")

	err = s.serveStream(ctx, conn, analyzer)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Debug("analysis stream closed")
	default:
		if !errors.Is(err, context.Canceled) {
			log.Warn("analysis stream failed", "err", err)
		}
	}
}

// serveStream reads frames until the connection fails or the client closes
// it, so it always returns a non-nil error. An interruption is counted once
// per turn.
func (s *Server) serveStream(ctx context.Context, conn *websocket.Conn, a *analysis.Analyzer) error {
	interrupted := false
	for {
		var f streamFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}

		now := s.now()
		reply := streamReply{Type: replyProgress}
		if res, done := a.Track(f.Transcript, f.Speaking, now); done {
			reply.Type = replyTurn
			reply.Analysis = res
		} else if res, ok := a.Progress(now); ok {
			reply.Analysis = res
		}

		if reply.Analysis.ShouldInterrupt {
			reply.Message = a.InterruptionMessage(reply.Analysis.InterruptionReason)
			if !interrupted {
				s.metrics.RecordInterruption(ctx, analysis.ReasonKind(reply.Analysis.InterruptionReason))
				interrupted = true
			}
		}
		if reply.Type == replyTurn {
			interrupted = false
		}

		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return err
		}
	}
}
