package training

import (
	"context"
	"sync"

	"github.com/ashureev/agentforge/internal/domain"
)

// Hub fans progress snapshots out to subscribers. Each subscriber holds at
// most one pending snapshot; a newer one replaces it.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan domain.TrainingState]struct{}
	latest domain.TrainingState
	seeded bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan domain.TrainingState]struct{})}
}

// Publish delivers state to every subscriber, replacing any unread snapshot.
func (h *Hub) Publish(state domain.TrainingState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = state
	h.seeded = true
	for ch := range h.subs {
		offer(ch, state)
	}
}

// Latest returns the last published snapshot.
func (h *Hub) Latest() (domain.TrainingState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.seeded
}

// Subscribe returns a channel receiving snapshots until ctx is done, at which
// point the channel is closed. The latest snapshot, if any, is delivered
// first.
func (h *Hub) Subscribe(ctx context.Context) <-chan domain.TrainingState {
	ch := make(chan domain.TrainingState, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.seeded {
		ch <- h.latest
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// offer sends state without blocking, dropping an unread older snapshot.
// Callers hold h.mu, so no other sender races for the slot.
func offer(ch chan domain.TrainingState, state domain.TrainingState) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- state
}
