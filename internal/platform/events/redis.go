package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultChannel = "medirespond:events"

// RedisBus publishes events on a Redis pub/sub channel so every server
// instance can relay them to its own websocket clients.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func NewRedisBus(client *redis.Client, channel string, logger zerolog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "event_bus").Logger(),
	}
}

// NewRedisClient parses url and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Relay forwards every event received on the channel to sink until ctx is
// cancelled.
func (b *RedisBus) Relay(ctx context.Context, sink Publisher) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(ctx, sink, msg.Payload)
		}
	}
}

func (b *RedisBus) forward(ctx context.Context, sink Publisher, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		b.logger.Warn().Err(err).Msg("dropping malformed event")
		return
	}
	if err := sink.Publish(ctx, event); err != nil {
		b.logger.Warn().Err(err).Str("type", event.Type).Msg("relay event failed")
	}
}
