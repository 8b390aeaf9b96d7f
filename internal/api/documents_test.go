package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/agentforge/internal/documents"
	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/embedding"
	"github.com/ashureev/agentforge/internal/retrieval"
	"github.com/go-chi/chi/v5"
)

func newDocumentRouter(t *testing.T) *chi.Mux {
	t.Helper()
	dir := t.TempDir()
	index, err := retrieval.NewSQLite(filepath.Join(dir, "chunks.db"), embedding.Guard(embedding.Placeholder{}))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	service := documents.NewService(index, documents.NewRegistry(filepath.Join(dir, "documents.json"), nil), nil)
	r := chi.NewRouter()
	NewDocumentHandler(service, nil).RegisterRoutes(r)
	return r
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocumentUploadListDelete(t *testing.T) {
	r := newDocumentRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "handbook.md", strings.Repeat("Refunds take five days. ", 100)))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	var doc domain.Document
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ID == "" || doc.Filename != "handbook.md" || doc.Status != documents.StatusIndexed || doc.Chunks < 2 {
		t.Fatalf("unexpected document %+v", doc)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/", nil))
	var list []domain.Document
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != doc.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	for i := 0; i < 2; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("delete %d status = %d", i, w.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["status"] != "deleted" || body["id"] != doc.ID {
			t.Fatalf("unexpected delete body %v", body)
		}
	}
}

func TestDocumentUploadRejectsUnsupportedType(t *testing.T) {
	r := newDocumentRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "payload.exe", "MZ"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDocumentUploadRequiresFile(t *testing.T) {
	r := newDocumentRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "no file here")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
