// ABOUTME: Redis pub/sub source feeding backend execution events into the hub
// ABOUTME: Subscribes to executions:* and republishes payloads by execution id

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// sourcePattern matches one channel per execution; the suffix after the
// colon is the execution id.
const sourcePattern = "executions:*"

// Source bridges the backend's Redis pub/sub channels into the hub. One
// Source runs for the process lifetime.
type Source struct {
	client *redis.Client
	hub    *Hub
	logger *slog.Logger
}

// NewSource creates a source reading from the given Redis client.
func NewSource(client *redis.Client, hub *Hub, logger *slog.Logger) *Source {
	return &Source{
		client: client,
		hub:    hub,
		logger: logger.With("component", "stream-source"),
	}
}

// Run subscribes and republishes until ctx is cancelled. Returns nil on
// cancellation; any other return is a transport failure.
func (s *Source) Run(ctx context.Context) error {
	sub := s.client.PSubscribe(ctx, sourcePattern)
	defer sub.Close()

	// Fail fast if the subscription could not be established
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	s.logger.Info("event source subscribed", "pattern", sourcePattern)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("pubsub channel closed")
			}
			executionID := strings.TrimPrefix(msg.Channel, "executions:")
			if executionID == "" || executionID == msg.Channel {
				s.logger.Warn("ignoring event on unexpected channel", "channel", msg.Channel)
				continue
			}
			s.hub.Publish(&Event{
				ExecutionID: executionID,
				Data:        json.RawMessage(msg.Payload),
			})
		}
	}
}
