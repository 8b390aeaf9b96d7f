// Package chat implements the retrieval-augmented chat turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/agentforge/internal/agent"
	"github.com/ashureev/agentforge/internal/config"
	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/llm"
	"github.com/ashureev/agentforge/internal/retrieval"
	"github.com/ashureev/agentforge/internal/store"
	"github.com/ashureev/agentforge/internal/tools"
)

// NotConfiguredMessage is returned as the answer when the OpenAI provider has
// no API key.
const NotConfiguredMessage = "I'm sorry, but I can't process your request right now because the OpenAI API key is missing. Please configure it in the backend .env file."

// NotConfiguredMessageFor names the missing credential of provider. An empty
// or "openai" provider yields NotConfiguredMessage.
func NotConfiguredMessageFor(provider string) string {
	switch strings.ToLower(provider) {
	case "", config.ProviderOpenAI:
		return NotConfiguredMessage
	case config.ProviderGemini:
		return strings.Replace(NotConfiguredMessage, "OpenAI", "Gemini", 1)
	default:
		return fmt.Sprintf("I'm sorry, but I can't process your request right now because the %s API key is missing. Please configure it in the backend .env file.", provider)
	}
}

// Response statuses.
const (
	StatusOK                  = "ok"
	StatusProviderUnavailable = "provider_unavailable"
	StatusProviderError       = "provider_error"
)

var (
	// ErrAgentNotFound is returned when the requested agent does not exist.
	ErrAgentNotFound = errors.New("chat: agent not found")

	// ErrSessionNotFound is returned in strict mode when a supplied session
	// does not exist or belongs to another agent.
	ErrSessionNotFound = errors.New("chat: session not found")

	// ErrEmptyMessage is returned when the user message is blank.
	ErrEmptyMessage = errors.New("chat: message is required")
)

// Agents resolves agent definitions.
type Agents interface {
	Get(id string) (domain.AgentConfig, error)
}

// Conversations is the part of the conversation store used by a chat turn.
type Conversations interface {
	CreateSession(ctx context.Context, agentID string, title *string) (string, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	AddMessage(ctx context.Context, sessionID, role, content string) (string, error)
}

// Retriever finds context chunks for a message.
type Retriever interface {
	Query(ctx context.Context, text string, k int, docIDs ...string) ([]retrieval.Match, error)
}

// Request is one chat turn.
type Request struct {
	AgentID   string            `json:"agent_id"`
	Message   string            `json:"message"`
	History   []domain.ChatTurn `json:"history"`
	SessionID string            `json:"session_id,omitempty"`
}

// Response is the result of a chat turn. Citations and ToolCalls are never
// nil.
type Response struct {
	Response  string       `json:"response"`
	Citations []string     `json:"citations"`
	ToolCalls []tools.Call `json:"tool_calls"`
	SessionID string       `json:"session_id"`
	Status    string       `json:"status"`
}

// Options tunes the orchestrator.
type Options struct {
	// ProviderName selects the wording of the not-configured answer.
	ProviderName           string
	RetrievalK             int
	Temperature            float32
	ProviderTimeout        time.Duration
	StrictSessionOwnership bool
	ScopeToAgentDocuments  bool
}

// Service runs chat turns. A nil provider means no model is configured and
// every turn returns NotConfiguredMessageFor(opts.ProviderName) without
// dialing out.
type Service struct {
	agents     Agents
	store      Conversations
	index      Retriever
	provider   llm.Provider
	transcript TranscriptSink
	opts       Options
	logger     *slog.Logger
}

// NewService creates a chat service. transcript may be nil.
func NewService(agents Agents, conversations Conversations, index Retriever, provider llm.Provider, transcript TranscriptSink, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if transcript == nil {
		transcript = NopTranscript{}
	}
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = 3
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 60 * time.Second
	}
	return &Service{
		agents:     agents,
		store:      conversations,
		index:      index,
		provider:   provider,
		transcript: transcript,
		opts:       opts,
		logger:     logger,
	}
}

// ProviderConfigured reports whether a model provider is available.
func (s *Service) ProviderConfigured() bool {
	return s.provider != nil
}

// Chat runs one turn. Provider and retrieval failures degrade the answer and
// are reported through Response.Status; only lookup and storage failures are
// returned as errors.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	cfg, err := s.agents.Get(req.AgentID)
	if err != nil {
		if errors.Is(err, agent.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, req.AgentID)
		}
		return nil, fmt.Errorf("resolve agent: %w", err)
	}

	sessionID, err := s.resolveSession(ctx, cfg.ID, req.SessionID)
	if err != nil {
		return nil, err
	}

	chunks := s.retrieve(ctx, cfg, req.Message)
	systemPrompt := ComposeSystemPrompt(cfg.SystemPrompt, chunks)

	messages := make([]llm.Message, 0, len(req.History)+2)
	messages = append(messages, llm.Message{Role: domain.RoleSystem, Content: systemPrompt})
	for _, turn := range req.History {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: domain.RoleUser, Content: req.Message})

	if _, err := s.store.AddMessage(ctx, sessionID, domain.RoleUser, req.Message); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	answer, status := s.complete(ctx, cfg, messages)

	if _, err := s.store.AddMessage(ctx, sessionID, domain.RoleAssistant, answer); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}

	if status == StatusOK {
		s.transcript.Record(Transcript{Messages: []domain.ChatTurn{
			{Role: domain.RoleSystem, Content: cfg.SystemPrompt},
			{Role: domain.RoleUser, Content: req.Message},
			{Role: domain.RoleAssistant, Content: answer},
		}})
	}

	citations := chunks
	if citations == nil {
		citations = []string{}
	}
	return &Response{
		Response:  answer,
		Citations: citations,
		ToolCalls: []tools.Call{},
		SessionID: sessionID,
		Status:    status,
	}, nil
}

func (s *Service) resolveSession(ctx context.Context, agentID, sessionID string) (string, error) {
	if sessionID == "" {
		id, err := s.store.CreateSession(ctx, agentID, nil)
		if err != nil {
			return "", fmt.Errorf("create session: %w", err)
		}
		return id, nil
	}

	if !s.opts.StrictSessionOwnership {
		return sessionID, nil
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if session.AgentID != agentID {
		return "", fmt.Errorf("%w: %s belongs to another agent", ErrSessionNotFound, sessionID)
	}
	return sessionID, nil
}

func (s *Service) retrieve(ctx context.Context, cfg domain.AgentConfig, message string) []string {
	if s.index == nil {
		return nil
	}

	var scope []string
	if s.opts.ScopeToAgentDocuments && len(cfg.DocumentIDs) > 0 {
		scope = cfg.DocumentIDs
	}

	matches, err := s.index.Query(ctx, message, s.opts.RetrievalK, scope...)
	if err != nil {
		s.logger.Warn("Retrieval failed, answering without context", "agent_id", cfg.ID, "error", err)
		return nil
	}
	return retrieval.Texts(matches)
}

func (s *Service) complete(ctx context.Context, cfg domain.AgentConfig, messages []llm.Message) (string, string) {
	if s.provider == nil {
		return NotConfiguredMessageFor(s.opts.ProviderName), StatusProviderUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	resp, err := s.provider.Complete(callCtx, llm.Request{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		s.logger.Error("Provider call failed", "agent_id", cfg.ID, "model", cfg.Model, "error", err)
		return fmt.Sprintf("I encountered an error communicating with the AI provider: %v", err), StatusProviderError
	}
	return resp.Content, StatusOK
}

// ComposeSystemPrompt appends retrieved context to an agent's system prompt.
func ComposeSystemPrompt(systemPrompt string, chunks []string) string {
	return systemPrompt + "\n\nContext:\n" + strings.Join(chunks, "\n\n")
}
