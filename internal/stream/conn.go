// ABOUTME: Websocket connection lifecycle for the log-streaming endpoint
// ABOUTME: Inbound control-frame loop plus outbound heartbeat/event loop, mutually cancelling

package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/hermeslabs/hermes-gateway/internal/auth"
)

// Control and server frame types on the streaming connection.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameHeartbeat   = "heartbeat"
	frameEvent       = "event"
)

// Frame is the JSON message exchanged on a streaming connection, in both
// directions.
type Frame struct {
	Type        string      `json:"type"`
	ExecutionID string      `json:"execution_id,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

// Handler upgrades authorized requests to websocket connections and runs
// them until either side closes. It must be mounted behind the auth
// middleware; the upgrade is the Open → Authorized transition.
type Handler struct {
	hub       *Hub
	heartbeat time.Duration
	logger    *slog.Logger
	metrics   Metrics
}

// NewHandler creates a streaming handler. Pass nil metrics for none.
func NewHandler(hub *Hub, heartbeat time.Duration, logger *slog.Logger, metrics Metrics) *Handler {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Handler{
		hub:       hub,
		heartbeat: heartbeat,
		logger:    logger.With("component", "stream"),
		metrics:   metrics,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}

	logger := h.logger
	if identity := auth.FromContext(r.Context()); identity != nil {
		logger = logger.With("user_id", identity.UserID)
	}

	c := newConn(ws, h.hub, h.heartbeat, logger)
	h.metrics.ConnOpened()
	defer h.metrics.ConnClosed()

	c.run(r.Context())
}

// conn is one streaming connection. Two goroutines run for its lifetime:
// readLoop dispatches inbound control frames, writeLoop emits heartbeats
// and fan-out events. Either loop's exit cancels the other.
type conn struct {
	id        string
	ws        *websocket.Conn
	hub       *Hub
	events    chan *Event
	heartbeat time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	subs map[string]struct{}
}

func newConn(ws *websocket.Conn, hub *Hub, heartbeat time.Duration, logger *slog.Logger) *conn {
	return &conn{
		id:        uuid.New().String(),
		ws:        ws,
		hub:       hub,
		events:    make(chan *Event, subscriberBufferSize),
		heartbeat: heartbeat,
		logger:    logger,
		subs:      make(map[string]struct{}),
	}
}

// run blocks until the connection terminates, then releases all of its
// subscriptions.
func (c *conn) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		c.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		c.writeLoop(ctx)
	}()
	wg.Wait()

	c.unsubscribeAll()
	c.ws.Close(websocket.StatusNormalClosure, "")
	c.logger.Debug("connection closed", "conn_id", c.id)
}

// readLoop reads and dispatches control frames until the peer closes or a
// transport error occurs. Malformed frames and unknown frame types are
// logged and dropped, never fatal.
func (c *conn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}

		switch frame.Type {
		case frameSubscribe:
			if frame.ExecutionID != "" {
				c.subscribe(frame.ExecutionID)
			}
		case frameUnsubscribe:
			if frame.ExecutionID != "" {
				c.unsubscribe(frame.ExecutionID)
			}
		default:
			c.logger.Warn("unknown frame type", "type", frame.Type)
		}
	}
}

// writeLoop emits a heartbeat on a fixed interval and forwards fan-out
// events from the connection's queue, in arrival order.
func (c *conn) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := &Frame{
				Type: frameHeartbeat,
				Data: map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				},
			}
			if err := c.writeFrame(ctx, frame); err != nil {
				return
			}
		case ev := <-c.events:
			frame := &Frame{
				Type:        frameEvent,
				ExecutionID: ev.ExecutionID,
				Data:        ev.Data,
			}
			if err := c.writeFrame(ctx, frame); err != nil {
				return
			}
		}
	}
}

func (c *conn) writeFrame(ctx context.Context, frame *Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *conn) subscribe(executionID string) {
	c.mu.Lock()
	if _, ok := c.subs[executionID]; ok {
		c.mu.Unlock()
		return
	}
	c.subs[executionID] = struct{}{}
	c.mu.Unlock()

	c.hub.Subscribe(executionID, c.id, c.events)
}

func (c *conn) unsubscribe(executionID string) {
	c.mu.Lock()
	if _, ok := c.subs[executionID]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, executionID)
	c.mu.Unlock()

	c.hub.Unsubscribe(executionID, c.id)
}

func (c *conn) unsubscribeAll() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	c.subs = make(map[string]struct{})
	c.mu.Unlock()

	for _, id := range ids {
		c.hub.Unsubscribe(id, c.id)
	}
}

// subscriptions returns the connection's current subscription set.
func (c *conn) subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	return ids
}
