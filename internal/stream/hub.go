// ABOUTME: In-memory fan-out hub for execution events
// ABOUTME: Delivers each event to every connection subscribed to its execution id

package stream

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// subscriberBufferSize is the outbound queue bound for each connection.
// A connection that falls this far behind starts losing events.
const subscriberBufferSize = 64

// Event is one execution event flowing from the backend source to
// subscribed connections.
type Event struct {
	ExecutionID string
	Data        json.RawMessage
}

// Metrics receives stream lifecycle callbacks. All methods must be safe for
// concurrent use.
type Metrics interface {
	ConnOpened()
	ConnClosed()
	EventDropped()
}

// NopMetrics is a Metrics that records nothing.
type NopMetrics struct{}

func (NopMetrics) ConnOpened()   {}
func (NopMetrics) ConnClosed()   {}
func (NopMetrics) EventDropped() {}

// Hub fans execution events out to subscribed connections. Each connection
// registers its single outbound channel under every execution id it is
// interested in; the hub never closes these channels, the connection owns
// them.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[string]chan *Event // executionID -> connID -> ch
	logger  *slog.Logger
	metrics Metrics
}

// NewHub creates a hub. Pass nil logger or metrics for defaults.
func NewHub(logger *slog.Logger, metrics Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Hub{
		subs:    make(map[string]map[string]chan *Event),
		logger:  logger.With("component", "stream-hub"),
		metrics: metrics,
	}
}

// Subscribe registers ch to receive events for executionID. Subscribing the
// same connID twice for one execution id is a no-op.
func (h *Hub) Subscribe(executionID, connID string, ch chan *Event) {
	h.mu.Lock()
	if _, ok := h.subs[executionID]; !ok {
		h.subs[executionID] = make(map[string]chan *Event)
	}
	h.subs[executionID][connID] = ch
	h.mu.Unlock()

	h.logger.Debug("subscriber added",
		"execution_id", executionID,
		"conn_id", connID)
}

// Unsubscribe removes the connection's registration for executionID.
func (h *Hub) Unsubscribe(executionID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[executionID]
	if !ok {
		return
	}
	if _, exists := subs[connID]; !exists {
		return
	}
	delete(subs, connID)

	// Clean up empty execution id entries
	if len(subs) == 0 {
		delete(h.subs, executionID)
	}

	h.logger.Debug("subscriber removed",
		"execution_id", executionID,
		"conn_id", connID)
}

// Publish sends an event to every connection subscribed to its execution
// id. Non-blocking: events are dropped for connections whose outbound
// queues are full.
func (h *Hub) Publish(event *Event) {
	h.mu.RLock()
	subs, ok := h.subs[event.ExecutionID]
	if !ok || len(subs) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy channels under read lock to avoid holding it during sends
	targets := make([]chan *Event, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	h.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
			// Sent
		default:
			// Outbound queue full, drop event for this connection
			h.metrics.EventDropped()
			h.logger.Debug("dropped event for slow connection",
				"execution_id", event.ExecutionID)
		}
	}
}

// subscriberCount reports how many connections are registered for an
// execution id.
func (h *Hub) subscriberCount(executionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[executionID])
}
