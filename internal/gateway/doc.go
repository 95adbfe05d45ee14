// ABOUTME: Package documentation for the gateway orchestrator
// ABOUTME: Describes the top-level wiring and HTTP surface

// Package gateway wires the hermes-gateway components into one HTTP
// service: login/refresh/logout against the identity backend, bearer-token
// middleware with Redis session cross-checks, workspace CRUD on SQLite,
// pass-through execution and memory APIs, and the websocket log stream fed
// by Redis pub/sub.
package gateway
