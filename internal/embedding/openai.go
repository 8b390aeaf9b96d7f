package embedding

import (
	"context"
	"net/http"
	"strings"

	"github.com/ashureev/agentforge/internal/llm"
)

const defaultOpenAIModel = "text-embedding-ada-002"

// OpenAI calls an OpenAI-compatible /embeddings endpoint.
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewOpenAI creates an OpenAI embedding engine.
func NewOpenAI(httpClient *http.Client, baseURL, apiKey, model string) *OpenAI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

type openaiEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Embedder.
func (e *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	wire := map[string]any{"model": e.model, "input": texts}

	var out openaiEmbeddingResponse
	if err := llm.PostJSON(ctx, e.httpClient, e.baseURL+"/embeddings", e.apiKey, wire, &out, "embedding/openai"); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= len(vectors) {
			idx = i
		}
		vectors[idx] = d.Embedding
	}
	return vectors, nil
}

// Dimensions implements Embedder.
func (e *OpenAI) Dimensions() int { return PlaceholderDimensions }

// Name implements Embedder.
func (e *OpenAI) Name() string { return "openai:" + e.model }
