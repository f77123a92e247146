package api

import (
	"context"
	"net/http"

	"github.com/MrWong99/podium/internal/observe"
)

type headPoseResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ServerURL string `json:"serverUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

type headPoseStatus struct {
	IsRunning bool   `json:"isRunning"`
	ServerURL string `json:"serverUrl"`
}

func (s *Server) handleHeadPoseStart(w http.ResponseWriter, r *http.Request) {
	if s.headPose == nil || !s.headPose.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, headPoseResult{
			Message: "Head pose detector is not configured",
		})
		return
	}
	if err := s.headPose.Start(r.Context()); err != nil {
		observe.Logger(r.Context()).Error("failed to start head pose detector", "err", err)
		writeJSON(w, http.StatusInternalServerError, headPoseResult{
			Message: "Failed to start head pose detector",
			Error:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, headPoseResult{
		Success:   true,
		Message:   "Head pose detector started successfully",
		ServerURL: s.headPose.ServerURL(),
	})
}

func (s *Server) handleHeadPoseStop(w http.ResponseWriter, r *http.Request) {
	if s.headPose != nil {
		if err := s.headPose.Stop(r.Context()); err != nil {
			observe.Logger(r.Context()).Error("failed to stop head pose detector", "err", err)
			writeJSON(w, http.StatusInternalServerError, headPoseResult{
				Message: "Error stopping head pose detector",
				Error:   err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, headPoseResult{
		Success: true,
		Message: "Head pose detector stopped successfully",
	})
}

func (s *Server) handleHeadPoseStatus(w http.ResponseWriter, _ *http.Request) {
	var st headPoseStatus
	if s.headPose != nil {
		st = headPoseStatus{IsRunning: s.headPose.Running(), ServerURL: s.headPose.ServerURL()}
	}
	writeJSON(w, http.StatusOK, st)
}

// ensureHeadPose starts the detector for a practice session or conversation.
// A detector that fails to start does not fail the request.
func (s *Server) ensureHeadPose(ctx context.Context) {
	if s.headPose == nil || !s.headPose.Configured() || s.headPose.Running() {
		return
	}
	if err := s.headPose.Start(ctx); err != nil {
		observe.Logger(ctx).Warn("head pose detector did not start", "err", err)
	}
}
