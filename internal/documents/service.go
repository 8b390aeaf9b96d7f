package documents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/retrieval"
	"github.com/google/uuid"
)

// StatusIndexed marks a document whose chunks are in the index.
const StatusIndexed = "indexed"

// Service turns uploads into indexed chunks.
type Service struct {
	index    retrieval.Index
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a document service.
func NewService(index retrieval.Index, registry *Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{index: index, registry: registry, logger: logger, now: time.Now}
}

// Ingest extracts, chunks and indexes an uploaded file, then records it in
// the registry.
func (s *Service) Ingest(ctx context.Context, filename string, data []byte) (domain.Document, error) {
	text, err := Extract(filename, data)
	if err != nil {
		return domain.Document{}, err
	}

	docID := uuid.New().String()
	texts := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(docID, i),
			Text:       t,
			DocID:      docID,
			Filename:   filename,
			ChunkIndex: i,
		}
	}

	if err := s.index.Add(ctx, chunks); err != nil {
		return domain.Document{}, fmt.Errorf("index %s: %w", filename, err)
	}

	doc := domain.Document{
		ID:         docID,
		Filename:   filename,
		Status:     StatusIndexed,
		Chunks:     len(chunks),
		UploadedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.registry.Append(doc); err != nil {
		if cleanupErr := s.index.DeleteDocument(ctx, docID); cleanupErr != nil {
			s.logger.Warn("Failed to remove chunks of unregistered document", "doc_id", docID, "error", cleanupErr)
		}
		return domain.Document{}, err
	}

	s.logger.Info("Document indexed", "doc_id", docID, "filename", filename, "chunks", len(chunks))
	return doc, nil
}

// List returns registered documents.
func (s *Service) List() []domain.Document {
	return s.registry.List()
}

// Delete removes a document's chunks from the index and its registry entry.
// Deleting an unknown document succeeds.
func (s *Service) Delete(ctx context.Context, docID string) error {
	if err := s.index.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	found, err := s.registry.Remove(docID)
	if err != nil {
		return err
	}
	if !found {
		s.logger.Debug("Deleted document had no registry entry", "doc_id", docID)
	}
	return nil
}
