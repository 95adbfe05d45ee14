// Package store provides workspace persistence for hermes-gateway.
//
// The Store interface is implemented by SQLiteStore (modernc.org/sqlite,
// WAL mode, schema created on open). Sessions are NOT stored here; they
// live in Redis under internal/session because they need TTL expiry.
package store
