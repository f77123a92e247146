package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/pkg/history"
	"github.com/MrWong99/podium/pkg/types"
)

func (s *Server) handleCurrentUser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, history.DemoUser)
}

type progressResponse struct {
	Progress []history.CategoryProgress `json:"progress"`
	Stats    history.Stats              `json:"stats"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	progress, err := s.store.Progress(ctx, history.DemoUser.ID)
	if err != nil {
		observe.Logger(ctx).Error("failed to fetch progress", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch progress")
		return
	}
	stats, err := s.store.Stats(ctx, history.DemoUser.ID)
	if err != nil {
		observe.Logger(ctx).Error("failed to fetch stats", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch progress")
		return
	}
	if progress == nil {
		progress = []history.CategoryProgress{}
	}
	writeJSON(w, http.StatusOK, progressResponse{Progress: progress, Stats: stats})
}

// createSessionRequest mirrors the client's insert payload. The user is
// always the demo user.
type createSessionRequest struct {
	CategoryID      string         `json:"categoryId"`
	QuestionID      string         `json:"questionId"`
	Transcript      string         `json:"transcript"`
	Metrics         types.Metrics  `json:"metrics"`
	Feedback        types.Feedback `json:"feedback"`
	DurationSeconds float64        `json:"durationSeconds"`
	ConfidenceScore *float64       `json:"confidenceScore"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess := history.Session{
		UserID:          history.DemoUser.ID,
		CategoryID:      req.CategoryID,
		QuestionID:      req.QuestionID,
		Transcript:      req.Transcript,
		Metrics:         req.Metrics,
		Feedback:        req.Feedback,
		DurationSeconds: req.DurationSeconds,
		ConfidenceScore: req.Metrics.Confidence,
	}
	if req.ConfidenceScore != nil {
		sess.ConfidenceScore = *req.ConfidenceScore
	}

	var verr *history.ValidationError
	if err := sess.Validate(); errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, messageBody{Message: "Invalid session data", Errors: verr.Fields})
		return
	}

	s.ensureHeadPose(r.Context())

	created, err := s.store.CreateSession(r.Context(), sess)
	if err != nil {
		observe.Logger(r.Context()).Error("failed to create session", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, s.sessionView(created))
}

// sessionView is a session joined with its category and question, the way
// the history page renders it.
type sessionView struct {
	history.Session
	Categories *categoryRef `json:"categories,omitempty"`
	Questions  *questionRef `json:"questions,omitempty"`
}

type categoryRef struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type questionRef struct {
	Question string `json:"question"`
}

func (s *Server) sessionView(sess history.Session) sessionView {
	v := sessionView{Session: sess}
	cat := s.catalog.Get()
	if c, ok := cat.Category(sess.CategoryID); ok {
		v.Categories = &categoryRef{Name: c.Name, Icon: c.Icon}
	}
	if q, ok := cat.Question(sess.CategoryID, sess.QuestionID); ok {
		v.Questions = &questionRef{Question: q.Question}
	}
	return v
}

// handleListSessions accepts ?limit=n. A missing or malformed limit lists
// every session.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := s.store.ListSessions(r.Context(), history.DemoUser.ID, limit)
	if err != nil {
		observe.Logger(r.Context()).Error("failed to fetch sessions", "err", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch sessions")
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, s.sessionView(sess))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Session not found")
		return
	}
	sess, err := s.store.GetSession(r.Context(), id)
	switch {
	case errors.Is(err, history.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Session not found")
	case err != nil:
		observe.Logger(r.Context()).Error("failed to fetch session", "id", id, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to fetch session")
	default:
		writeJSON(w, http.StatusOK, s.sessionView(sess))
	}
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Session not found")
		return
	}
	deleted, err := s.store.DeleteSession(r.Context(), id)
	switch {
	case err != nil:
		observe.Logger(r.Context()).Error("failed to delete session", "id", id, "err", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to delete session")
	case !deleted:
		writeMessage(w, http.StatusNotFound, "Session not found")
	default:
		writeMessage(w, http.StatusOK, "Session deleted successfully")
	}
}
