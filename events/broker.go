// Package events fans status updates out to Server-Sent Events clients.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// clientBuffer is how many undelivered messages a slow client may hold
// before new ones are dropped for it.
const clientBuffer = 10

// Broker manages SSE connections and broadcasts events
type Broker struct {
	clients map[chan string]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewBroker creates a broker with no clients
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		clients: make(map[chan string]bool),
		logger:  logger,
	}
}

// Subscribe registers a new client and returns its message channel.
func (b *Broker) Subscribe() chan string {
	client := make(chan string, clientBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
	b.logger.Debug("sse client connected", "clients", len(b.clients))
	return client
}

// Unsubscribe removes a client and closes its channel
func (b *Broker) Unsubscribe(client chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.clients[client] {
		return
	}
	delete(b.clients, client)
	close(client)
	b.logger.Debug("sse client disconnected", "clients", len(b.clients))
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to all connected clients. Clients whose buffer is
// full miss the event.
func (b *Broker) Broadcast(eventType string, data any) {
	message, err := Format(eventType, data)
	if err != nil {
		b.logger.Error("failed to marshal event data", "event", eventType, "error", err)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for client := range b.clients {
		select {
		case client <- message:
		default:
			dropped++
		}
	}
	b.logger.Debug("broadcast event", "event", eventType, "clients", len(b.clients), "dropped", dropped)
}

// Format renders one SSE message with a JSON payload.
func Format(eventType string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload), nil
}
