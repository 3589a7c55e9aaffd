// Package broadcast fans progress messages out to any number of subscribers
// and streams them to HTTP clients as server-sent events.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/JaimeStill/warden/pkg/lifecycle"
)

// Observer receives progress messages. Notify must not block.
type Observer interface {
	Notify(message string)
}

// Source hands out subscriptions to a message stream.
type Source interface {
	// Subscribe returns a receive channel and a function that ends the
	// subscription. The channel is closed when the subscription ends.
	Subscribe() (<-chan string, func())
}

// Hub is an Observer that delivers every message to all current
// subscribers. A subscriber whose buffer is full misses the message;
// other subscribers and the sender are unaffected.
type Hub struct {
	mu      sync.Mutex
	buffer  int
	nextID  int
	subs    map[int]chan string
	closed  bool
	dropped int
	logger  *slog.Logger
}

// NewHub creates a Hub giving each subscriber a channel of the given buffer size.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[int]chan string),
		logger: logger.With("system", "broadcast"),
	}
}

// Notify delivers message to every subscriber without blocking.
func (h *Hub) Notify(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for id, ch := range h.subs {
		select {
		case ch <- message:
		default:
			h.dropped++
			h.logger.Debug("subscriber buffer full", "subscriber", id)
		}
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan string, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close ends every subscription. Later notifications are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

// Start registers a shutdown hook that closes the hub so open event
// streams end before the HTTP server drains connections.
func (h *Hub) Start(lc *lifecycle.Coordinator) {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		h.logger.Info("closing subscriptions", "count", h.Subscribers())
		h.Close()
	})
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}
