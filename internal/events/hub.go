// Package events fans facade state changes and operation records out to
// Server-Sent Events clients.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Fantasim/btcconnect/internal/config"
	"github.com/Fantasim/btcconnect/internal/facade"
	"github.com/Fantasim/btcconnect/internal/journal"
)

// Event types.
const (
	TypeState    = "state"
	TypeActivity = "activity"
)

// Event is one SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub manages fan-out broadcasting of events to connected SSE clients.
type Hub struct {
	clients map[chan Event]struct{}
	mu      sync.RWMutex
	closed  bool
}

var _ facade.Observer = (*Hub)(nil)

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[chan Event]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every client channel.
func (h *Hub) Run(ctx context.Context) {
	slog.Info("SSE hub running")
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}

	slog.Info("SSE hub stopped", "reason", ctx.Err())
}

// Subscribe registers a new client. The returned channel is closed on
// Unsubscribe or hub shutdown.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, config.SSEHubChannelBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	h.clients[ch] = struct{}{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	slog.Info("SSE client subscribed", "totalClients", clientCount)
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	clientCount := len(h.clients)
	h.mu.Unlock()

	slog.Info("SSE client unsubscribed", "totalClients", clientCount)
}

// Broadcast sends an event to all connected clients. A client whose buffer is
// full misses the event.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE event dropped for slow client", "eventType", event.Type)
		}
	}

	slog.Debug("SSE event broadcast", "type", event.Type, "clients", len(h.clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnState is a facade.Listener broadcasting every snapshot.
func (h *Hub) OnState(s facade.Snapshot) {
	h.Broadcast(Event{Type: TypeState, Data: s})
}

// Observe implements facade.Observer by broadcasting the journal row the
// operation produces.
func (h *Hub) Observe(_ context.Context, op facade.Operation) {
	h.Broadcast(Event{Type: TypeActivity, Data: journal.Activity(op)})
}
