package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ashureev/agentforge/internal/agent"
	"github.com/ashureev/agentforge/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AgentRegistry is the agent catalog used by AgentHandler.
type AgentRegistry interface {
	Create(ctx context.Context, def agent.NewAgent) (domain.AgentConfig, error)
	Get(id string) (domain.AgentConfig, error)
	List() []domain.AgentConfig
}

// SessionLister lists the sessions of an agent.
type SessionLister interface {
	GetAgentSessions(ctx context.Context, agentID string) ([]domain.Session, error)
}

// ToolLookup reports whether a tool is registered.
type ToolLookup interface {
	Has(name string) bool
}

// AgentHandler handles agent definition endpoints.
type AgentHandler struct {
	agents   AgentRegistry
	sessions SessionLister
	tools    ToolLookup
	logger   *slog.Logger
}

// NewAgentHandler creates an agent handler. tools may be nil to accept any
// tool name.
func NewAgentHandler(agents AgentRegistry, sessions SessionLister, tools ToolLookup, logger *slog.Logger) *AgentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentHandler{agents: agents, sessions: sessions, tools: tools, logger: logger}
}

// RegisterRoutes registers agent routes.
func (h *AgentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/agents", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{agentID}", h.Get)
		r.Get("/{agentID}/sessions", h.Sessions)
	})
}

// Create registers a new agent.
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req agent.NewAgent
	if !decodeJSON(w, r, &req) {
		return
	}

	if h.tools != nil {
		for _, name := range req.Tools {
			if !h.tools.Has(name) {
				Error(w, http.StatusBadRequest, fmt.Sprintf("unknown tool %q", name))
				return
			}
		}
	}

	created, err := h.agents.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, agent.ErrInvalid) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to create agent", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	h.logger.Info("Agent created", "agent_id", created.ID, "name", created.Name, "model", created.Model)
	JSON(w, http.StatusOK, created)
}

// List returns every agent in creation order.
func (h *AgentHandler) List(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.agents.List())
}

// Get returns one agent.
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.agents.Get(chi.URLParam(r, "agentID"))
	if err != nil {
		if errors.Is(err, agent.ErrNotFound) {
			Error(w, http.StatusNotFound, "Agent not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to load agent")
		return
	}
	JSON(w, http.StatusOK, found)
}

// Sessions returns the sessions of an agent, most recent first.
func (h *AgentHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if _, err := h.agents.Get(agentID); err != nil {
		if errors.Is(err, agent.ErrNotFound) {
			Error(w, http.StatusNotFound, "Agent not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to load agent")
		return
	}

	sessions, err := h.sessions.GetAgentSessions(r.Context(), agentID)
	if err != nil {
		h.logger.Error("Failed to list sessions", "agent_id", agentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	JSON(w, http.StatusOK, sessions)
}
