// Package agent holds the in-memory registry of agent definitions.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned when an agent id has no record.
var ErrNotFound = errors.New("agent: not found")

// ErrInvalid is returned when a definition is missing required fields.
var ErrInvalid = errors.New("agent: invalid definition")

// NewAgent is the caller-supplied part of an agent definition.
type NewAgent struct {
	Name         string   `json:"name" yaml:"name"`
	Model        string   `json:"model" yaml:"model"`
	SystemPrompt string   `json:"system_prompt" yaml:"system_prompt"`
	Tools        []string `json:"tools" yaml:"tools"`
	DocumentIDs  []string `json:"document_ids" yaml:"document_ids"`
}

// Registry stores agent definitions for the lifetime of the process.
// Records are returned by value and never mutated after creation.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]domain.AgentConfig
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]domain.AgentConfig)}
}

// Create assigns a fresh id to def and stores it. Model and tool names are
// accepted verbatim.
func (r *Registry) Create(_ context.Context, def NewAgent) (domain.AgentConfig, error) {
	if strings.TrimSpace(def.Name) == "" {
		return domain.AgentConfig{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}

	cfg := domain.AgentConfig{
		ID:           uuid.New().String(),
		Name:         def.Name,
		Model:        def.Model,
		SystemPrompt: def.SystemPrompt,
		Tools:        def.Tools,
		DocumentIDs:  def.DocumentIDs,
	}.Clone()

	r.mu.Lock()
	r.agents[cfg.ID] = cfg
	r.order = append(r.order, cfg.ID)
	r.mu.Unlock()

	return cfg.Clone(), nil
}

// Get returns the agent with the given id.
func (r *Registry) Get(id string) (domain.AgentConfig, error) {
	r.mu.RLock()
	cfg, ok := r.agents[id]
	r.mu.RUnlock()
	if !ok {
		return domain.AgentConfig{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cfg.Clone(), nil
}

// List returns every agent in creation order.
func (r *Registry) List() []domain.AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AgentConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].Clone())
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
