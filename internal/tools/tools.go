// Package tools provides the typed capability registry that agents reference
// by name.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTool is returned when a tool name is not registered.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Tool is a callable capability exposed to agents.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the tool arguments.
	Parameters() json.RawMessage
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// Descriptor is the wire form of a registered tool.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Call records one tool invocation made during a chat turn.
type Call struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    any             `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Registry holds tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry populated with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Default returns a registry with the built-in tools.
func Default() *Registry {
	return NewRegistry(CreateTicket{}, LookupUserStatus{})
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns descriptors for all tools sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call invokes the named tool. Invocation failures are recorded on the
// returned Call; only an unknown tool name is reported as an error.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (Call, error) {
	t, ok := r.Get(name)
	if !ok {
		return Call{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	call := Call{Name: name, Arguments: args}
	result, err := t.Invoke(ctx, args)
	if err != nil {
		call.Error = err.Error()
		return call, nil
	}
	call.Result = result
	return call, nil
}
