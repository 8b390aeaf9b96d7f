package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/agentforge/internal/documents"
	"github.com/ashureev/agentforge/internal/domain"
	"github.com/go-chi/chi/v5"
)

// defaultMaxUploadSize bounds a multipart document upload (32MB).
const defaultMaxUploadSize = 32 << 20

// DocumentService ingests and removes knowledge documents.
type DocumentService interface {
	Ingest(ctx context.Context, filename string, data []byte) (domain.Document, error)
	List() []domain.Document
	Delete(ctx context.Context, docID string) error
}

// DocumentHandler handles document endpoints.
type DocumentHandler struct {
	docs   DocumentService
	logger *slog.Logger
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(docs DocumentService, logger *slog.Logger) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{docs: docs, logger: logger}
}

// RegisterRoutes registers document routes.
func (h *DocumentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/documents", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Get("/", h.List)
		r.Delete("/{docID}", h.Delete)
	})
}

// Upload ingests the multipart "file" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxUploadSize)
	if err := r.ParseMultipartForm(defaultMaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := h.docs.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		if errors.Is(err, documents.ErrUnsupportedType) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Document ingestion failed", "filename", header.Filename, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, doc)
}

// List returns the document registry.
func (h *DocumentHandler) List(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.docs.List())
}

// Delete removes a document and its chunks. Unknown ids succeed.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := h.docs.Delete(r.Context(), docID); err != nil {
		h.logger.Error("Document deletion failed", "doc_id", docID, "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": docID})
}
