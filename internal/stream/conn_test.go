// ABOUTME: Tests for websocket connection handling
// ABOUTME: Exercises subscribe/unsubscribe frames, heartbeats, and event delivery

package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestHandler starts an httptest server around a Handler and dials it,
// returning the client side of the connection.
func dialTestHandler(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	ws, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "") })

	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, frame Frame) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ws.Write(ctx, websocket.MessageText, data))
}

func readFrame(t *testing.T, ws *websocket.Conn, timeout time.Duration) *Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, data, err := ws.Read(ctx)
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	return &frame
}

// waitForSubscribers polls until the execution id has n hub subscribers.
func waitForSubscribers(t *testing.T, hub *Hub, executionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.subscriberCount(executionID) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("execution %s never reached %d subscribers", executionID, n)
}

func TestConnReceivesSubscribedEvents(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, time.Minute, testLogger(), nil)

	ws := dialTestHandler(t, h)
	sendFrame(t, ws, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	waitForSubscribers(t, hub, "exec-1", 1)

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{"line":"compiling"}`)})

	frame := readFrame(t, ws, 2*time.Second)
	assert.Equal(t, frameEvent, frame.Type)
	assert.Equal(t, "exec-1", frame.ExecutionID)

	data, err := json.Marshal(frame.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"line":"compiling"}`, string(data))
}

func TestConnUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, time.Minute, testLogger(), nil)

	ws := dialTestHandler(t, h)
	sendFrame(t, ws, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	waitForSubscribers(t, hub, "exec-1", 1)

	sendFrame(t, ws, Frame{Type: frameUnsubscribe, ExecutionID: "exec-1"})
	waitForSubscribers(t, hub, "exec-1", 0)

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})

	// Only a read timeout should follow; no event frame
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _, err := ws.Read(ctx)
	assert.Error(t, err)
}

func TestConnHeartbeat(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, time.Second, testLogger(), nil)

	ws := dialTestHandler(t, h)

	frame := readFrame(t, ws, 3*time.Second)
	require.Equal(t, frameHeartbeat, frame.Type)

	payload, ok := frame.Data.(map[string]interface{})
	require.True(t, ok)
	ts, ok := payload["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestConnSurvivesMalformedFrames(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, time.Minute, testLogger(), nil)

	ws := dialTestHandler(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ws.Write(ctx, websocket.MessageText, []byte("not json")))
	sendFrame(t, ws, Frame{Type: "bogus-type"})

	// The connection still works after garbage input
	sendFrame(t, ws, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	waitForSubscribers(t, hub, "exec-1", 1)

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})
	frame := readFrame(t, ws, 2*time.Second)
	assert.Equal(t, frameEvent, frame.Type)
}

func TestConnCleansUpSubscriptionsOnClose(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, time.Minute, testLogger(), nil)

	ws := dialTestHandler(t, h)
	sendFrame(t, ws, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	sendFrame(t, ws, Frame{Type: frameSubscribe, ExecutionID: "exec-2"})
	waitForSubscribers(t, hub, "exec-1", 1)
	waitForSubscribers(t, hub, "exec-2", 1)

	ws.Close(websocket.StatusNormalClosure, "")

	waitForSubscribers(t, hub, "exec-1", 0)
	waitForSubscribers(t, hub, "exec-2", 0)
}

func TestConnMultipleSubscribersFanOut(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, time.Minute, testLogger(), nil)

	first := dialTestHandler(t, h)
	second := dialTestHandler(t, h)
	sendFrame(t, first, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	sendFrame(t, second, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	waitForSubscribers(t, hub, "exec-1", 2)

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{"n":1}`)})

	for _, ws := range []*websocket.Conn{first, second} {
		frame := readFrame(t, ws, 2*time.Second)
		assert.Equal(t, frameEvent, frame.Type)
		assert.Equal(t, "exec-1", frame.ExecutionID)
	}
}

func TestConnSubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(testLogger(), nil)
	h := NewHandler(hub, time.Minute, testLogger(), nil)

	ws := dialTestHandler(t, h)
	sendFrame(t, ws, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	sendFrame(t, ws, Frame{Type: frameSubscribe, ExecutionID: "exec-1"})
	waitForSubscribers(t, hub, "exec-1", 1)

	hub.Publish(&Event{ExecutionID: "exec-1", Data: json.RawMessage(`{}`)})
	frame := readFrame(t, ws, 2*time.Second)
	assert.Equal(t, frameEvent, frame.Type)

	// No duplicate delivery
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _, err := ws.Read(ctx)
	assert.Error(t, err)
}
