// Package llm provides chat completion providers used by the orchestrator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/agentforge/internal/config"
)

// Message is one entry of the conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
}

// Response is a completed model answer.
type Response struct {
	Content string
	Model   string
}

// Provider completes chat conversations.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ProviderError is a non-2xx reply from a provider API.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("provider returned %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Message)
}

// New returns the provider selected by cfg. It returns a nil Provider and a
// nil error when the selected provider has no credential configured.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, chat provider disabled")
			return nil, nil
		}
		return NewGemini(ctx, cfg.GeminiAPIKey)
	default:
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, chat provider disabled")
			return nil, nil
		}
		return NewOpenAI(&http.Client{Timeout: cfg.Timeout}, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), nil
	}
}

// PostJSON sends wireRequest as a JSON POST with a bearer token and decodes a
// 200 reply into wireResponse. Errors are prefixed with prefix.
func PostJSON(ctx context.Context, client *http.Client, endpoint, apiKey string, wireRequest, wireResponse any, prefix string) error {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", prefix, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", prefix, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+apiKey)
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", prefix, err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", prefix, readProviderError(httpResponse))
	}

	if err := json.NewDecoder(httpResponse.Body).Decode(wireResponse); err != nil {
		return fmt.Errorf("%s: decoding response: %w", prefix, err)
	}
	return nil
}

func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}

	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    string(body),
	}
}
