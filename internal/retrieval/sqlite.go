package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/embedding"
	"github.com/ashureev/agentforge/internal/shared"
)

// SQLiteIndex keeps chunks and their embeddings in a SQLite table and ranks
// them by cosine similarity in process.
type SQLiteIndex struct {
	db       *sql.DB
	embedder embedding.Embedder
}

// NewSQLite opens (or creates) a chunk collection at dbPath.
func NewSQLite(dbPath string, e embedding.Embedder) (*SQLiteIndex, error) {
	db, err := shared.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	idx := &SQLiteIndex{db: db, embedder: embedding.Guard(e)}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return idx, nil
}

func (x *SQLiteIndex) initSchema() error {
	_, err := x.db.Exec(`
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (x *SQLiteIndex) Close() error {
	return x.db.Close()
}

// Add implements Index.
func (x *SQLiteIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := embedChunks(ctx, x.embedder, chunks)
	if err != nil {
		return err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, doc_id, filename, chunk_index, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_id = excluded.doc_id,
			filename = excluded.filename,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare add: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.Filename, c.ChunkIndex, c.Text, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add: %w", err)
	}
	return nil
}

// Query implements Index.
func (x *SQLiteIndex) Query(ctx context.Context, text string, k int, docIDs ...string) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	query, err := embedQuery(ctx, x.embedder, text)
	if err != nil {
		return nil, err
	}

	stmt := `SELECT id, doc_id, filename, chunk_index, text, embedding FROM chunks`
	args := make([]any, 0, len(docIDs))
	if len(docIDs) > 0 {
		stmt += ` WHERE doc_id IN (?` + strings.Repeat(`, ?`, len(docIDs)-1) + `)`
		for _, id := range docIDs {
			args = append(args, id)
		}
	}
	stmt += ` ORDER BY rowid`

	rows, err := x.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocID, &c.Filename, &c.ChunkIndex, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		score, err := embedding.CosineSimilarity(query, decodeVector(blob))
		if err != nil {
			return nil, fmt.Errorf("score chunk %s: %w", c.ID, err)
		}
		matches = append(matches, Match{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteDocument implements Index.
func (x *SQLiteIndex) DeleteDocument(ctx context.Context, docID string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}

var _ Index = (*SQLiteIndex)(nil)
