package api

import (
	"errors"
	"net/http"

	"github.com/MrWong99/podium/internal/conversation"
	"github.com/MrWong99/podium/internal/observe"
)

const setupMessage = "Please set up your LiveKit credentials in the .env file to use AI conversation features."

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics := s.catalog.Get().Topics()
	observe.Logger(r.Context()).Debug("fetching conversation topics", "count", len(topics))
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleRoles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Get().Roles())
}

func (s *Server) conversationsConfigured() bool {
	return s.conversations != nil && s.conversations.Configured()
}

type createRoomRequest struct {
	TopicID  string `json:"topicId"`
	RoleID   string `json:"roleId"`
	Identity string `json:"identity"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	log := observe.Logger(r.Context()).With("topic", req.TopicID)

	if req.TopicID == "" {
		writeError(w, http.StatusBadRequest, "Topic ID is required")
		return
	}
	if !s.conversationsConfigured() {
		log.Info("LiveKit not configured")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error:         "LiveKit is not configured",
			Message:       setupMessage,
			SetupRequired: true,
		})
		return
	}

	s.ensureHeadPose(r.Context())

	cat := s.catalog.Get()
	topic, ok := cat.Topic(req.TopicID)
	if !ok {
		writeError(w, http.StatusNotFound, "Topic not found")
		return
	}
	role := cat.Role(req.RoleID)

	room, err := s.conversations.StartConversation(r.Context(), topic, role, req.Identity)
	switch {
	case errors.Is(err, conversation.ErrAgentTimeout):
		log.Error("failed to start AI conversation", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Failed to start AI conversation",
			Message: "The AI agent failed to connect. Please try again.",
		})
	case err != nil:
		log.Error("error creating conversation room", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create conversation room")
	default:
		writeJSON(w, http.StatusOK, room)
	}
}

type endConversationRequest struct {
	RoomName string `json:"roomName"`
}

func (s *Server) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	var req endConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoomName == "" {
		writeError(w, http.StatusBadRequest, "Room name is required")
		return
	}
	if !s.conversationsConfigured() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "LiveKit is not configured", Message: setupMessage})
		return
	}
	if err := s.conversations.EndConversation(r.Context(), req.RoomName); err != nil {
		observe.Logger(r.Context()).Error("error ending conversation", "room", req.RoomName, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to end conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleConversationStatus(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("roomName")
	if room == "" {
		writeError(w, http.StatusBadRequest, "Room name is required")
		return
	}
	if !s.conversationsConfigured() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "LiveKit is not configured", Message: setupMessage})
		return
	}
	active, err := s.conversations.AgentActive(r.Context(), room)
	if err != nil {
		observe.Logger(r.Context()).Error("error getting conversation status", "room", room, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to get conversation status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isActive": active})
}
