package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/agentforge/internal/agent"
	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/tools"
	"github.com/go-chi/chi/v5"
)

type fakeSessions struct {
	sessions map[string][]domain.Session
	err      error
}

func (f *fakeSessions) GetAgentSessions(_ context.Context, agentID string) ([]domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.sessions[agentID]
	if out == nil {
		out = []domain.Session{}
	}
	return out, nil
}

func newAgentRouter(t *testing.T) (*chi.Mux, *agent.Registry, *fakeSessions) {
	t.Helper()
	registry := agent.NewRegistry()
	sessions := &fakeSessions{sessions: map[string][]domain.Session{}}
	r := chi.NewRouter()
	NewAgentHandler(registry, sessions, tools.Default(), nil).RegisterRoutes(r)
	return r, registry, sessions
}

func TestAgentCreateAndGet(t *testing.T) {
	r, _, _ := newAgentRouter(t)

	body := `{"name":"Support","model":"gpt-x","system_prompt":"Be helpful","tools":["lookup_user_status"]}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/agents/", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}

	var created domain.AgentConfig
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" || created.Name != "Support" || created.SystemPrompt != "Be helpful" {
		t.Fatalf("unexpected agent %+v", created)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agents/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got domain.AgentConfig
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != created.ID || len(got.DocumentIDs) != 0 || got.DocumentIDs == nil {
		t.Fatalf("unexpected agent %+v", got)
	}
}

func TestAgentGetUnknownIs404(t *testing.T) {
	r, _, _ := newAgentRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agents/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAgentCreateValidation(t *testing.T) {
	r, registry, _ := newAgentRouter(t)

	cases := map[string]string{
		"missing name": `{"model":"gpt-x","system_prompt":"x"}`,
		"unknown tool": `{"name":"A","model":"gpt-x","system_prompt":"x","tools":["launch_rockets"]}`,
		"malformed":    `{"name":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/agents/", strings.NewReader(body)))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
	if registry.Len() != 0 {
		t.Fatalf("registry has %d agents, want 0", registry.Len())
	}
}

func TestAgentListPreservesCreationOrder(t *testing.T) {
	r, registry, _ := newAgentRouter(t)
	for _, name := range []string{"one", "two", "three"} {
		if _, err := registry.Create(context.Background(), agent.NewAgent{Name: name}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agents/", nil))
	var list []domain.AgentConfig
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 || list[0].Name != "one" || list[2].Name != "three" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestAgentSessions(t *testing.T) {
	r, registry, sessions := newAgentRouter(t)
	created, err := registry.Create(context.Background(), agent.NewAgent{Name: "Support"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sessions.sessions[created.ID] = []domain.Session{{ID: "s2", AgentID: created.ID}, {ID: "s1", AgentID: created.ID}}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agents/"+created.ID+"/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got []domain.Session
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "s2" {
		t.Fatalf("unexpected sessions %+v", got)
	}

	sessions.err = errors.New("database is closed")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/agents/"+created.ID+"/sessions", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
