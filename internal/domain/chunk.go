package domain

import "strconv"

// Chunk is a contiguous slice of document text indexed for retrieval.
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
}

// ChunkID builds the identifier for the i-th chunk of a document.
func ChunkID(docID string, i int) string {
	return docID + "_" + strconv.Itoa(i)
}

// Document is an entry in the uploaded document registry.
type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Chunks     int    `json:"chunks"`
	UploadedAt string `json:"uploaded_at"`
}
