package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/agentforge/internal/domain"
	"github.com/ashureev/agentforge/internal/training"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

type fakeJobs struct {
	started []training.StartRequest
	state   domain.TrainingState
	updates chan domain.TrainingState
}

func (f *fakeJobs) Start(_ context.Context, req training.StartRequest) (training.Ack, error) {
	if req.Epochs < 1 {
		return training.Ack{}, training.ErrInvalidEpochs
	}
	f.started = append(f.started, req)
	return training.Ack{Status: "started", Message: "Training started in background"}, nil
}

func (f *fakeJobs) Status() domain.TrainingState { return f.state }

func (f *fakeJobs) Subscribe(ctx context.Context) <-chan domain.TrainingState {
	out := make(chan domain.TrainingState)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-f.updates:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func newTrainingRouter(jobs TrainingJobs) *chi.Mux {
	r := chi.NewRouter()
	NewTrainingHandler(jobs, "", "", true, nil).RegisterRoutes(r)
	return r
}

func TestTrainAppliesDefaults(t *testing.T) {
	jobs := &fakeJobs{}
	r := newTrainingRouter(jobs)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ml/train", strings.NewReader(`{}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var ack training.Ack
	if err := json.NewDecoder(w.Body).Decode(&ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ack.Status != "started" || ack.Message != "Training started in background" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ml/train", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("empty body status = %d", w.Code)
	}

	want := training.StartRequest{Epochs: training.DefaultEpochs, ModelName: training.DefaultModel}
	for i, got := range jobs.started {
		if got != want {
			t.Fatalf("start %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestTrainRejectsInvalidEpochs(t *testing.T) {
	r := newTrainingRouter(&fakeJobs{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ml/train", strings.NewReader(`{"epochs":0,"mock":true}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTrainingStatus(t *testing.T) {
	jobs := &fakeJobs{state: domain.TrainingState{Status: domain.TrainingRunning, Step: 3, TotalSteps: 10, Loss: 2.1}}
	r := newTrainingRouter(jobs)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ml/status", nil))
	var got domain.TrainingState
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != jobs.state {
		t.Fatalf("status = %+v, want %+v", got, jobs.state)
	}
}

func TestTrainingStatusIdle(t *testing.T) {
	r := newTrainingRouter(&fakeJobs{state: domain.TrainingState{Status: domain.TrainingIdle}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ml/status", nil))
	if got := strings.TrimSpace(w.Body.String()); got != `{"status":"idle"}` {
		t.Fatalf("body = %s", got)
	}
}

func TestTrainingStream(t *testing.T) {
	jobs := &fakeJobs{
		state:   domain.TrainingState{Status: domain.TrainingRunning, TotalSteps: 5},
		updates: make(chan domain.TrainingState),
	}
	srv := httptest.NewServer(newTrainingRouter(jobs))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ml/stream", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() domain.TrainingState {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		var s domain.TrainingState
		if err := json.Unmarshal(data, &s); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return s
	}

	if got := read(); got != jobs.state {
		t.Fatalf("first snapshot = %+v, want %+v", got, jobs.state)
	}

	done := domain.TrainingState{Status: domain.TrainingCompleted, Step: 5, TotalSteps: 5, Loss: 0.5}
	select {
	case jobs.updates <- done:
	case <-ctx.Done():
		t.Fatal("stream never subscribed")
	}
	if got := read(); got != done {
		t.Fatalf("update = %+v, want %+v", got, done)
	}
}

func TestTrainingStartFailureIs500(t *testing.T) {
	r := chi.NewRouter()
	NewTrainingHandler(&failingJobs{}, "", "", true, nil).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ml/train", strings.NewReader(`{"epochs":1}`)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

type failingJobs struct{ fakeJobs }

func (failingJobs) Start(context.Context, training.StartRequest) (training.Ack, error) {
	return training.Ack{}, errors.New("launch training worker: exec: \"trainer\": executable file not found")
}
