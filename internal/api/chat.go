package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/ashureev/agentforge/internal/chat"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// ChatService runs chat turns.
type ChatService interface {
	Chat(ctx context.Context, req chat.Request) (*chat.Response, error)
}

// ChatHandler handles the chat endpoint.
type ChatHandler struct {
	chat    ChatService
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewChatHandler creates a chat handler. limiter may be nil to disable rate
// limiting.
func NewChatHandler(service ChatService, limiter *RateLimiter, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{chat: service, limiter: limiter, logger: logger}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/chat", h.HandleChat)
	r.Post("/api/v1/chat/", h.HandleChat)
}

// HandleChat handles POST /api/v1/chat.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req chat.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" {
		Error(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	h.logger.Info("Chat request",
		"agent_id", req.AgentID,
		"session_id", req.SessionID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(req.Message),
	)

	resp, err := h.chat.Chat(r.Context(), req)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, resp)
	case errors.Is(err, chat.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrAgentNotFound), errors.Is(err, chat.ErrSessionNotFound):
		Error(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Chat turn failed", "agent_id", req.AgentID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
	}
}

// clientKey identifies the caller for rate limiting. RemoteAddr has already
// been rewritten by the RealIP middleware.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
