package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/agentforge/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionHistoryPreservesInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	// Freeze the clock so ordering relies on the insertion tiebreaker.
	fixed := time.Unix(1700000000, 0)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx, "agent-1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	want := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "hello"},
		{Role: domain.RoleAssistant, Content: "hi"},
		{Role: domain.RoleUser, Content: "how are you"},
		{Role: domain.RoleAssistant, Content: "fine"},
	}
	for _, m := range want {
		if _, err := s.AddMessage(ctx, sessionID, m.Role, m.Content); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	history, err := s.GetSessionHistory(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSessionHistory() error = %v", err)
	}
	if len(history) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(history))
	}
	for i, m := range history {
		if m.Role != want[i].Role || m.Content != want[i].Content {
			t.Fatalf("message %d = %s/%q, want %s/%q", i, m.Role, m.Content, want[i].Role, want[i].Content)
		}
		if m.SessionID != sessionID {
			t.Fatalf("message %d has session %q", i, m.SessionID)
		}
	}
}

func TestSessionHistoryIgnoresClockStepBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(-time.Duration(tick) * time.Minute)
	}

	sessionID, err := s.CreateSession(ctx, "agent-1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	for _, content := range []string{"first", "second", "third"} {
		if _, err := s.AddMessage(ctx, sessionID, domain.RoleUser, content); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}
	later, err := s.CreateSession(ctx, "agent-1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	history, err := s.GetSessionHistory(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSessionHistory() error = %v", err)
	}
	var got []string
	for _, m := range history {
		got = append(got, m.Content)
	}
	if fmt.Sprint(got) != "[first second third]" {
		t.Fatalf("history order = %v, want insertion order", got)
	}

	sessions, err := s.GetAgentSessions(ctx, "agent-1")
	if err != nil {
		t.Fatalf("GetAgentSessions() error = %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != later || sessions[1].ID != sessionID {
		t.Fatalf("expected most recently created session first, got %+v", sessions)
	}
}

func TestGetSessionHistoryUnknownSessionIsEmpty(t *testing.T) {
	s := newTestStore(t)

	history, err := s.GetSessionHistory(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetSessionHistory() error = %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %v", history)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetAgentSessionsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	title := "billing"
	first, _ := s.CreateSession(ctx, "agent-1", &title)
	second, _ := s.CreateSession(ctx, "agent-1", nil)
	if _, err := s.CreateSession(ctx, "agent-2", nil); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	sessions, err := s.GetAgentSessions(ctx, "agent-1")
	if err != nil {
		t.Fatalf("GetAgentSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second || sessions[1].ID != first {
		t.Fatalf("unexpected order: %s, %s", sessions[0].ID, sessions[1].ID)
	}
	if sessions[1].Title == nil || *sessions[1].Title != "billing" {
		t.Fatalf("expected title to round-trip, got %v", sessions[1].Title)
	}
	if sessions[0].Title != nil {
		t.Fatalf("expected nil title, got %q", *sessions[0].Title)
	}
}

func TestConcurrentAddMessageKeepsEveryWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sessionID, err := s.CreateSession(ctx, "agent-1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.AddMessage(ctx, sessionID, domain.RoleUser, fmt.Sprintf("msg-%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AddMessage() error = %v", err)
	}

	history, err := s.GetSessionHistory(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetSessionHistory() error = %v", err)
	}
	if len(history) != writers {
		t.Fatalf("expected %d messages, got %d", writers, len(history))
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	sessionID, _ := s.CreateSession(ctx, "agent-1", nil)
	if _, err := s.AddMessage(ctx, sessionID, domain.RoleUser, "persist me"); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	_ = s.Close()

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	history, err := reopened.GetSessionHistory(ctx, sessionID)
	if err != nil || len(history) != 1 || history[0].Content != "persist me" {
		t.Fatalf("expected persisted message, got %v (err %v)", history, err)
	}
}
