// ABOUTME: Tests for the fan-out hub
// ABOUTME: Covers delivery, isolation between execution ids, and drop-on-full

package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingMetrics records drop callbacks for assertions.
type countingMetrics struct {
	mu      sync.Mutex
	dropped int
}

func (m *countingMetrics) ConnOpened() {}
func (m *countingMetrics) ConnClosed() {}
func (m *countingMetrics) EventDropped() {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

func (m *countingMetrics) droppedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub(testLogger(), nil)

	first := make(chan *Event, 4)
	second := make(chan *Event, 4)
	hub.Subscribe("exec-1", "conn-a", first)
	hub.Subscribe("exec-1", "conn-b", second)

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{"line":"hello"}`)})

	for _, ch := range []chan *Event{first, second} {
		select {
		case ev := <-ch:
			assert.Equal(t, "exec-1", ev.ExecutionID)
			assert.JSONEq(t, `{"line":"hello"}`, string(ev.Data))
		default:
			t.Fatal("expected event delivered to subscriber")
		}
	}
}

func TestHubIsolatesExecutionIDs(t *testing.T) {
	hub := NewHub(testLogger(), nil)

	ch := make(chan *Event, 4)
	hub.Subscribe("exec-1", "conn-a", ch)

	hub.Publish(&Event{ExecutionID: "exec-2", Data: json.RawMessage(`{}`)})

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func TestHubPublishWithNoSubscribers(t *testing.T) {
	hub := NewHub(testLogger(), nil)

	// Should not panic or block
	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	metrics := &countingMetrics{}
	hub := NewHub(testLogger(), metrics)

	ch := make(chan *Event, 2)
	hub.Subscribe("exec-1", "conn-a", ch)

	for i := 0; i < 5; i++ {
		hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})
	}

	assert.Len(t, ch, 2, "queue holds its capacity")
	assert.Equal(t, 3, metrics.droppedCount(), "overflow is dropped and counted")
}

func TestHubSubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger(), nil)

	ch := make(chan *Event, 4)
	hub.Subscribe("exec-1", "conn-a", ch)
	hub.Subscribe("exec-1", "conn-a", ch)

	require.Equal(t, 1, hub.subscriberCount("exec-1"))

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})
	assert.Len(t, ch, 1, "double subscribe must not double-deliver")
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(testLogger(), nil)

	ch := make(chan *Event, 4)
	hub.Subscribe("exec-1", "conn-a", ch)
	hub.Unsubscribe("exec-1", "conn-a")

	assert.Equal(t, 0, hub.subscriberCount("exec-1"))

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})
	assert.Empty(t, ch)

	// Unknown ids are a no-op
	hub.Unsubscribe("exec-1", "conn-a")
	hub.Unsubscribe("exec-404", "conn-a")
}

func TestHubConcurrentPublish(t *testing.T) {
	hub := NewHub(testLogger(), &countingMetrics{})

	ch := make(chan *Event, 1024)
	hub.Subscribe("exec-1", "conn-a", ch)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, len(ch))
}
