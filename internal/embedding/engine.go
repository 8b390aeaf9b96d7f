// Package embedding provides vector embedding generation for retrieval.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/ashureev/agentforge/internal/config"
)

// PlaceholderDimensions is the size of placeholder vectors, matching
// text-embedding-ada-002.
const PlaceholderDimensions = 1536

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// Options configures New.
type Options struct {
	config.EmbeddingConfig
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
}

// New returns the embedder selected by opts, falling back to the placeholder
// engine when the selected provider has no credential.
func New(ctx context.Context, opts Options, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var engine Embedder
	switch opts.Provider {
	case config.ProviderGemini:
		if opts.GeminiAPIKey == "" {
			break
		}
		g, err := NewGenAI(ctx, opts.GeminiAPIKey, opts.Model, opts.Dimensions)
		if err != nil {
			return nil, err
		}
		engine = g
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			break
		}
		engine = NewOpenAI(&http.Client{Timeout: opts.Timeout}, opts.OpenAIBaseURL, opts.OpenAIAPIKey, opts.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}

	if engine == nil {
		logger.Warn("No embedding credential configured, using placeholder vectors", "provider", opts.Provider)
		engine = Placeholder{}
	}
	logger.Info("Embedding engine ready", "engine", engine.Name(), "dimensions", engine.Dimensions())
	return Guard(engine), nil
}

// Guard wraps e so that an empty input yields an empty result without
// calling the backend.
func Guard(e Embedder) Embedder {
	if _, ok := e.(guarded); ok {
		return e
	}
	return guarded{Embedder: e}
}

type guarded struct {
	Embedder
}

func (g guarded) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors, err := g.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding %s: got %d vectors for %d texts", g.Name(), len(vectors), len(texts))
	}
	return vectors, nil
}

// Placeholder returns a constant vector for every text. It keeps indexing
// and querying functional without a provider; ranking is meaningless.
type Placeholder struct{}

// Embed implements Embedder.
func (Placeholder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, PlaceholderDimensions)
		for j := range v {
			v[j] = 0.1
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions implements Embedder.
func (Placeholder) Dimensions() int { return PlaceholderDimensions }

// Name implements Embedder.
func (Placeholder) Name() string { return "placeholder" }

// CosineSimilarity returns the cosine similarity of a and b. Zero-magnitude
// vectors score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
