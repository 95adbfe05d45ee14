// ABOUTME: Redis-backed session records keyed by subject with TTL expiry
// ABOUTME: Tracks the live access-token jti per user for revocation checks

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session errors
var (
	// ErrNotFound means no session record exists for the subject (never
	// created, expired via TTL, or deleted on logout).
	ErrNotFound = errors.New("session not found")

	// ErrUnavailable means the backing Redis could not be reached. Writers
	// must treat this as fail-closed; the middleware read path converts it
	// to a 503 rather than granting access.
	ErrUnavailable = errors.New("session store unavailable")
)

// Record is the server-side session state for one subject. TokenID is the
// jti of the currently live access token; a request presenting any other
// jti for this subject fails the middleware cross-check.
type Record struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Role    string `json:"role"`
	TokenID string `json:"jti"`
}

// Store records active sessions in Redis, one record per subject. TTL
// enforcement is delegated to Redis; Put overwrites unconditionally, so
// concurrent logins for the same subject race on last-writer-wins.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// NewStore creates a session store on the given Redis client. Pass nil
// logger for the default.
func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		logger: logger.With("component", "sessions"),
	}
}

// Put records or overwrites the session for rec.UserID with the given TTL.
func (s *Store) Put(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(rec.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.Debug("session recorded", "user_id", rec.UserID, "ttl", ttl)
	return nil
}

// Get returns the session record for the subject, or ErrNotFound if no
// record exists.
func (s *Store) Get(ctx context.Context, subject string) (*Record, error) {
	data, err := s.client.Get(ctx, sessionKey(subject)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding session record: %w", err)
	}
	return &rec, nil
}

// Delete removes the session record for the subject. Deleting a missing
// record is not an error.
func (s *Store) Delete(ctx context.Context, subject string) error {
	if err := s.client.Del(ctx, sessionKey(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.Debug("session deleted", "user_id", subject)
	return nil
}

func sessionKey(subject string) string {
	return "session:" + subject
}
