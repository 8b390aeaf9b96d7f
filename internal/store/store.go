// Package store provides conversation persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/agentforge/internal/domain"
)

// ErrSessionNotFound is returned when a session id has no record.
var ErrSessionNotFound = errors.New("store: session not found")

// ConversationStore persists chat sessions and their messages. Every call is
// an independent, auto-committed write or read; a successful return means the
// record is durable.
type ConversationStore interface {
	// CreateSession creates an empty session for an agent and returns its id.
	CreateSession(ctx context.Context, agentID string, title *string) (string, error)

	// GetSession retrieves a session by id or returns ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// AddMessage appends a message to a session and returns the message id.
	// The session row is not required to exist.
	AddMessage(ctx context.Context, sessionID, role, content string) (string, error)

	// GetSessionHistory returns the messages of a session in insertion order.
	GetSessionHistory(ctx context.Context, sessionID string) ([]domain.Message, error)

	// GetAgentSessions returns the sessions of an agent, most recent first.
	GetAgentSessions(ctx context.Context, agentID string) ([]domain.Session, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
