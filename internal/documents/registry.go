package documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/shared"
)

// Registry persists uploaded document metadata as a JSON list.
type Registry struct {
	mu       sync.Mutex
	path     string
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
}

// NewRegistry creates a registry backed by the file at path.
func NewRegistry(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{path: path, logger: logger, readFile: os.ReadFile}
}

// List returns all documents in upload order. A missing, unreadable or
// corrupt file reads as empty.
func (r *Registry) List() []domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.load()
	if err != nil {
		r.logger.Warn("Failed to read document registry", "path", r.path, "error", err)
		return []domain.Document{}
	}
	return docs
}

// Append adds a document entry.
func (r *Registry) Append(doc domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.load()
	if err != nil {
		return err
	}
	return r.save(append(docs, doc))
}

// Remove deletes the entry with the given id and reports whether it existed.
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.load()
	if err != nil {
		return false, err
	}
	kept := docs[:0]
	for _, d := range docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(docs) {
		return false, nil
	}
	return true, r.save(kept)
}

// load reads the registry file. A missing or corrupt file is empty; any other
// read error is returned so callers never overwrite entries they could not see.
func (r *Registry) load() ([]domain.Document, error) {
	data, err := r.readFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Document{}, nil
		}
		return nil, fmt.Errorf("read document registry: %w", err)
	}

	docs := []domain.Document{}
	if err := json.Unmarshal(data, &docs); err != nil {
		r.logger.Warn("Document registry is corrupt, treating as empty", "path", r.path, "error", err)
		return []domain.Document{}, nil
	}
	return docs, nil
}

func (r *Registry) save(docs []domain.Document) error {
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document registry: %w", err)
	}
	if err := shared.WriteFileAtomic(r.path, data, 0644); err != nil {
		return fmt.Errorf("save document registry: %w", err)
	}
	return nil
}
