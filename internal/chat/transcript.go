package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ashureev/agentforge/internal/domain"
)

// Transcript is one fine-tuning example in chat format.
type Transcript struct {
	Messages []domain.ChatTurn `json:"messages"`
}

// TranscriptSink accepts completed exchanges for the fine-tuning corpus.
// Record must not block the caller or report failures to it.
type TranscriptSink interface {
	Record(t Transcript)
}

// NopTranscript discards every record.
type NopTranscript struct{}

// Record implements TranscriptSink.
func (NopTranscript) Record(Transcript) {}

// TranscriptConfig configures a TranscriptLogger.
type TranscriptConfig struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// TranscriptLogger appends transcripts as JSON lines from a single background
// writer. Each line is written with one write call on an O_APPEND file.
type TranscriptLogger struct {
	path   string
	queue  chan Transcript
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewTranscriptLogger starts a transcript writer. When cfg.Enabled is false
// it returns a sink that drops everything.
func NewTranscriptLogger(cfg TranscriptConfig, logger *slog.Logger) (TranscriptSink, func() error, error) {
	if !cfg.Enabled {
		return NopTranscript{}, func() error { return nil }, nil
	}
	if cfg.Path == "" {
		return nil, nil, fmt.Errorf("transcript path is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create transcript directory: %w", err)
	}

	l := &TranscriptLogger{
		path:   cfg.Path,
		queue:  make(chan Transcript, cfg.QueueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go l.run()
	return l, l.Close, nil
}

// Record enqueues t. A full queue drops the record.
func (l *TranscriptLogger) Record(t Transcript) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.logger.Warn("Transcript logger closed, dropping record")
		return
	}

	select {
	case l.queue <- t:
	default:
		l.logger.Warn("Transcript queue full, dropping record", "path", l.path)
	}
}

// Close stops accepting records and waits for queued ones to be written.
func (l *TranscriptLogger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done
	return nil
}

func (l *TranscriptLogger) run() {
	defer close(l.done)
	for t := range l.queue {
		if err := l.write(t); err != nil {
			l.logger.Error("Failed to write transcript", "path", l.path, "error", err)
		}
	}
}

func (l *TranscriptLogger) write(t Transcript) error {
	line, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append transcript: %w", err)
	}
	return f.Close()
}
