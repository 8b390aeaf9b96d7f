package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/training"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// TrainingJobs starts and observes fine-tuning jobs.
type TrainingJobs interface {
	Start(ctx context.Context, req training.StartRequest) (training.Ack, error)
	Status() domain.TrainingState
	Subscribe(ctx context.Context) <-chan domain.TrainingState
}

// TrainingHandler handles fine-tuning endpoints.
type TrainingHandler struct {
	jobs          TrainingJobs
	defaultModel  string
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// NewTrainingHandler creates a training handler.
func NewTrainingHandler(jobs TrainingJobs, defaultModel, allowedOrigin string, isDev bool, logger *slog.Logger) *TrainingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultModel == "" {
		defaultModel = training.DefaultModel
	}
	return &TrainingHandler{
		jobs:          jobs,
		defaultModel:  defaultModel,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
	}
}

// RegisterRoutes registers training routes.
func (h *TrainingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/ml", func(r chi.Router) {
		r.Post("/train", h.Train)
		r.Get("/status", h.Status)
		r.Get("/stream", h.Stream)
	})
}

// Train starts a job. Missing fields take their defaults.
func (h *TrainingHandler) Train(w http.ResponseWriter, r *http.Request) {
	req := training.StartRequest{Epochs: training.DefaultEpochs, ModelName: h.defaultModel}
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ack, err := h.jobs.Start(r.Context(), req)
	if err != nil {
		if errors.Is(err, training.ErrInvalidEpochs) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to start training", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, ack)
}

// Status returns the current progress snapshot.
func (h *TrainingHandler) Status(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.jobs.Status())
}

// Stream pushes progress snapshots over a WebSocket, starting with the
// current one.
func (h *TrainingHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	// CloseRead cancels ctx when the client goes away.
	ctx := ws.CloseRead(r.Context())
	updates := h.jobs.Subscribe(ctx)

	last := h.jobs.Status()
	if err := writeJSON(ctx, ws, last); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if state == last {
				continue
			}
			last = state
			if err := writeJSON(ctx, ws, state); err != nil {
				h.logger.Debug("Training stream write failed", "error", err)
				return
			}
		}
	}
}

func (h *TrainingHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
