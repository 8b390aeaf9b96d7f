// Package documents ingests uploaded files into the retrieval index and keeps
// the document registry.
package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedType is returned for file extensions that cannot be
// extracted.
var ErrUnsupportedType = errors.New("documents: unsupported file type")

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Extract returns the plain text of an uploaded file, chosen by extension.
func Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("documents: %s is not valid UTF-8", filename)
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filename)
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("documents: open pdf: %w", err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("documents: extract pdf text: %w", err)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, text); err != nil {
		return "", fmt.Errorf("documents: read pdf text: %w", err)
	}
	return buf.String(), nil
}

// ChunkText splits text into windows of size characters, each starting
// size-overlap characters after the previous one. The last window may be
// shorter.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	chunks := []string{}
	for start := 0; start < len(runes); start += size - overlap {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
