package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/go-chi/chi/v5"
)

// SessionStore is the part of the conversation store behind session routes.
type SessionStore interface {
	CreateSession(ctx context.Context, agentID string, title *string) (string, error)
	GetSessionHistory(ctx context.Context, sessionID string) ([]domain.Message, error)
}

// SessionHandler handles session endpoints.
type SessionHandler struct {
	store  SessionStore
	agents AgentRegistry
	logger *slog.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store SessionStore, agents AgentRegistry, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{store: store, agents: agents, logger: logger}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{sessionID}/messages", h.Messages)
	})
}

type createSessionRequest struct {
	AgentID string  `json:"agent_id"`
	Title   *string `json:"title,omitempty"`
}

// Create opens an empty session for an agent.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		Error(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	if _, err := h.agents.Get(req.AgentID); err != nil {
		Error(w, http.StatusNotFound, "Agent not found")
		return
	}

	id, err := h.store.CreateSession(r.Context(), req.AgentID, req.Title)
	if err != nil {
		h.logger.Error("Failed to create session", "agent_id", req.AgentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"session_id": id})
}

// Messages returns a session's history in insertion order. Unknown sessions
// yield an empty list.
func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	messages, err := h.store.GetSessionHistory(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load history", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	JSON(w, http.StatusOK, messages)
}
