// Package stream is the real-time log-streaming gateway.
//
// # Connection protocol
//
// Clients open an authorized websocket at /ws/logs and send JSON control
// frames:
//
//	{"type": "subscribe", "execution_id": "..."}
//	{"type": "unsubscribe", "execution_id": "..."}
//
// The server emits {"type":"heartbeat","data":{"timestamp":...}} on a fixed
// interval and {"type":"event","execution_id":...,"data":...} frames for
// subscribed executions. Unknown frame types are logged and ignored.
//
// # Concurrency
//
// Each connection runs exactly two goroutines, an inbound control-frame
// loop and an outbound heartbeat/event loop, under one cancellation scope,
// so either loop's exit (peer close, transport error) promptly stops the
// other and releases the connection's subscriptions.
//
// Per-connection outbound queues are bounded; the Hub drops events for a
// connection whose queue is full rather than blocking or disconnecting it.
// Heartbeats bypass the queue, so a slow consumer still observes liveness.
// The Source feeds the Hub from the backend's Redis pub/sub channels.
package stream
