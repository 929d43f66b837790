package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedirsath07/ExpireGuard/internal/bus"
)

// Bus is the Redis pub/sub implementation of the page↔worker message bus.
// Redis pub/sub gives exactly the delivery contract the contexts assume:
// at-most-once, best-effort, nothing queued for absent subscribers.
type Bus struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBus wraps a Redis client as a bus.Publisher / bus.Subscriber.
func NewBus(client *redis.Client, logger *slog.Logger) *Bus {
	return &Bus{client: client, logger: logger}
}

// Publish sends msg to every current subscriber of channel.
func (b *Bus) Publish(ctx context.Context, channel string, msg bus.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal bus message: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers channel messages to handler until ctx is cancelled.
// Malformed messages are logged and skipped, never surfaced to the handler.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler bus.HandlerFunc) error {
	sub := b.client.Subscribe(ctx, channel)
	defer func() { _ = sub.Close() }()

	// Force the subscription to be established before returning control to
	// the message loop, so callers can order publishes after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg bus.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Error("malformed bus message, skipping",
					slog.String("channel", channel),
					slog.String("error", err.Error()),
				)
				continue
			}
			handler(ctx, msg)
		}
	}
}
