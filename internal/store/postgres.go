package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements ConversationStore on PostgreSQL. The seq column gives
// insertion order independent of created_at.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*PGStore, error) {
	db, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := &PGStore{db: db}
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresFromPool wraps an existing pool. The caller owns the pool.
func NewPostgresFromPool(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// CreateSchema creates the session and message tables.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		title TEXT,
		seq BIGSERIAL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_agent ON chat_sessions(agent_id, seq);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq BIGSERIAL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

// CreateSession creates an empty session for an agent.
func (s *PGStore) CreateSession(ctx context.Context, agentID string, title *string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, agent_id, title) VALUES ($1, $2, $3)`,
		id, agentID, title,
	)
	if err != nil {
		return "", fmt.Errorf("store: create session: %w", err)
	}
	return id, nil
}

// GetSession retrieves a session by id.
func (s *PGStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session := &domain.Session{ID: sessionID}
	err := s.db.QueryRow(ctx,
		`SELECT agent_id, title, created_at FROM chat_sessions WHERE id = $1`,
		sessionID,
	).Scan(&session.AgentID, &session.Title, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return session, nil
}

// AddMessage appends a message to a session.
func (s *PGStore) AddMessage(ctx context.Context, sessionID, role, content string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content) VALUES ($1, $2, $3, $4)`,
		id, sessionID, role, content,
	)
	if err != nil {
		return "", fmt.Errorf("store: add message: %w", err)
	}
	return id, nil
}

// GetSessionHistory returns the messages of a session in insertion order.
func (s *PGStore) GetSessionHistory(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM chat_messages WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var createdAt time.Time
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		msg.CreatedAt = createdAt
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return messages, nil
}

// GetAgentSessions returns the sessions of an agent, most recent first.
func (s *PGStore) GetAgentSessions(ctx context.Context, agentID string) ([]domain.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, title, created_at
		 FROM chat_sessions WHERE agent_id = $1 ORDER BY seq DESC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.ID, &session.AgentID, &session.Title, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return sessions, nil
}

var _ ConversationStore = (*PGStore)(nil)
