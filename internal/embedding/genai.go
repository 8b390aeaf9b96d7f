package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAI generates embeddings using the Gemini API.
type GenAI struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGenAI creates a Gemini embedding engine. Vectors are truncated to
// dimensions so they share a column width with other engines.
func NewGenAI(ctx context.Context, apiKey, model string, dimensions int) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding/genai: API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding/genai: creating client: %w", err)
	}

	return &GenAI{client: client, model: model, dimensions: dimensions}, nil
}

// Embed implements Embedder.
func (e *GenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(e.dimensions)
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding/genai: embed content: %w", err)
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Dimensions implements Embedder.
func (e *GenAI) Dimensions() int { return e.dimensions }

// Name implements Embedder.
func (e *GenAI) Name() string { return "genai:" + e.model }
