package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ashureev/agentforge/internal/tools"
	"github.com/go-chi/chi/v5"
)

// ToolCatalog lists and invokes tools.
type ToolCatalog interface {
	List() []tools.Descriptor
	Call(ctx context.Context, name string, args json.RawMessage) (tools.Call, error)
}

// ToolHandler handles tool endpoints.
type ToolHandler struct {
	tools ToolCatalog
}

// NewToolHandler creates a tool handler.
func NewToolHandler(catalog ToolCatalog) *ToolHandler {
	return &ToolHandler{tools: catalog}
}

// RegisterRoutes registers tool routes.
func (h *ToolHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/tools", h.List)
	r.Post("/api/v1/tools/{name}/invoke", h.Invoke)
}

// List returns the registered tools.
func (h *ToolHandler) List(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.tools.List())
}

// Invoke runs a tool with the JSON request body as arguments.
func (h *ToolHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize))
	if err != nil {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if len(args) > 0 && !json.Valid(args) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	call, err := h.tools.Call(r.Context(), chi.URLParam(r, "name"), args)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			Error(w, http.StatusNotFound, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, call)
}
