package api

import (
	"errors"
	"net/http"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/observe"
	"github.com/MrWong99/podium/pkg/history"
)

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Get().Categories())
}

// handleQuestions answers an empty list for unknown categories.
func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Get().Questions(r.PathValue("categoryId")))
}

type analyzeSpeechRequest struct {
	AudioData       string  `json:"audioData"`
	QuestionID      string  `json:"questionId"`
	CategoryID      string  `json:"categoryId"`
	DurationSeconds float64 `json:"durationSeconds"`
	Persist         *bool   `json:"persist"`
}

func (s *Server) handleAnalyzeSpeech(w http.ResponseWriter, r *http.Request) {
	var req analyzeSpeechRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AudioData == "" {
		writeError(w, http.StatusBadRequest, "Audio data is required")
		return
	}
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "Speech analysis is not configured")
		return
	}

	persist := req.Persist == nil || *req.Persist
	res, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		AudioBase64:     req.AudioData,
		QuestionID:      req.QuestionID,
		CategoryID:      req.CategoryID,
		DurationSeconds: req.DurationSeconds,
		Persist:         persist,
		UserID:          history.DemoUser.ID,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, analysis.ErrAudioRequired):
		writeError(w, http.StatusBadRequest, "Audio data is required")
	case errors.Is(err, analysis.ErrInvalidAudio):
		writeError(w, http.StatusBadRequest, "Invalid audio data")
	default:
		observe.Logger(r.Context()).Error("error analyzing speech", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to analyze speech")
	}
}
