// Package retrieval provides the vector index used to ground chat answers in
// uploaded documents.
package retrieval

import (
	"context"
	"fmt"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/embedding"
	"golang.org/x/sync/errgroup"
)

const (
	embedBatchSize   = 64
	embedConcurrency = 4
)

// Match is a chunk returned by a similarity query.
type Match struct {
	Chunk domain.Chunk `json:"chunk"`
	Score float64      `json:"score"`
}

// Index stores embedded chunks and answers nearest-neighbour queries.
type Index interface {
	// Add embeds and upserts chunks by id.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Query returns up to k chunks most similar to text, best first. When
	// docIDs is non-empty only chunks of those documents are considered.
	Query(ctx context.Context, text string, k int, docIDs ...string) ([]Match, error)

	// DeleteDocument removes every chunk of a document. Deleting an unknown
	// document is not an error.
	DeleteDocument(ctx context.Context, docID string) error

	Close() error
}

// Texts returns the chunk texts of matches in rank order.
func Texts(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Chunk.Text
	}
	return out
}

// embedChunks embeds chunk texts in fixed-size batches, running a bounded
// number of batches concurrently. Result order matches chunks.
func embedChunks(ctx context.Context, e embedding.Embedder, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.Text)
			}
			batch, err := e.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(batch) != len(texts) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func embedQuery(ctx context.Context, e embedding.Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	return vectors[0], nil
}
