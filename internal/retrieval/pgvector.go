package retrieval

import (
	"context"
	"fmt"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/embedding"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// PGVectorIndex stores chunks in PostgreSQL and ranks them with the pgvector
// cosine distance operator.
type PGVectorIndex struct {
	db       *pgxpool.Pool
	embedder embedding.Embedder
}

// NewPGVector connects to databaseURL, enables the vector extension and
// creates the chunk table sized to the embedder's dimensions.
func NewPGVector(ctx context.Context, databaseURL string, e embedding.Embedder) (*PGVectorIndex, error) {
	if err := ensureExtension(ctx, databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("retrieval: parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("retrieval: connect postgres: %w", err)
	}

	x := &PGVectorIndex{db: db, embedder: embedding.Guard(e)}
	if err := x.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return x, nil
}

func ensureExtension(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("retrieval: connect postgres: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("retrieval: create vector extension: %w", err)
	}
	return nil
}

func (x *PGVectorIndex) createSchema(ctx context.Context) error {
	_, err := x.db.Exec(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		seq BIGSERIAL,
		embedding vector(%d) NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_document_chunks_doc ON document_chunks(doc_id);
	`, x.embedder.Dimensions()))
	if err != nil {
		return fmt.Errorf("retrieval: create schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (x *PGVectorIndex) Close() error {
	x.db.Close()
	return nil
}

// Add implements Index.
func (x *PGVectorIndex) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := embedChunks(ctx, x.embedder, chunks)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(`
			INSERT INTO document_chunks (id, doc_id, filename, chunk_index, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				doc_id = EXCLUDED.doc_id,
				filename = EXCLUDED.filename,
				chunk_index = EXCLUDED.chunk_index,
				text = EXCLUDED.text,
				embedding = EXCLUDED.embedding`,
			c.ID, c.DocID, c.Filename, c.ChunkIndex, c.Text, pgvector.NewVector(vectors[i]))
	}

	if err := x.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("retrieval: upsert chunks: %w", err)
	}
	return nil
}

// Query implements Index.
func (x *PGVectorIndex) Query(ctx context.Context, text string, k int, docIDs ...string) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	query, err := embedQuery(ctx, x.embedder, text)
	if err != nil {
		return nil, err
	}

	stmt := `SELECT id, doc_id, filename, chunk_index, text, 1 - (embedding <=> $1) AS score
		FROM document_chunks`
	args := []any{pgvector.NewVector(query), k}
	if len(docIDs) > 0 {
		stmt += ` WHERE doc_id = ANY($3)`
		args = append(args, docIDs)
	}
	stmt += ` ORDER BY embedding <=> $1, seq LIMIT $2`

	rows, err := x.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query chunks: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Chunk.ID, &m.Chunk.DocID, &m.Chunk.Filename, &m.Chunk.ChunkIndex, &m.Chunk.Text, &m.Score); err != nil {
			return nil, fmt.Errorf("retrieval: scan chunk: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("retrieval: query chunks: %w", err)
	}
	return matches, nil
}

// DeleteDocument implements Index.
func (x *PGVectorIndex) DeleteDocument(ctx context.Context, docID string) error {
	if _, err := x.db.Exec(ctx, `DELETE FROM document_chunks WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("retrieval: delete document %s: %w", docID, err)
	}
	return nil
}

var _ Index = (*PGVectorIndex)(nil)
