package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// DefaultChannel is the Redis pub/sub channel carrying events
const DefaultChannel = "crm:events"

// RedisPublisher publishes events to Redis so every API instance can relay
// them to its own WebSocket clients.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher on channel
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Backoff between relay subscription attempts
var (
	relayInitialBackoff = 500 * time.Millisecond
	relayMaxBackoff     = 30 * time.Second
)

// Relay subscribes to channel and forwards every event to local. It blocks
// until ctx is done or local stops, resubscribing with exponential backoff
// when Redis is unreachable. ready, if non-nil, is closed once the first
// subscription is confirmed.
func Relay(ctx context.Context, client *redis.Client, channel string, local Publisher, ready chan<- struct{}) error {
	if channel == "" {
		channel = DefaultChannel
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = relayInitialBackoff
	b.MaxInterval = relayMaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		subscribed, err := relayOnce(ctx, client, channel, local, &ready)
		if ctx.Err() != nil || errors.Is(err, errHubStopped) {
			return nil
		}
		if subscribed {
			b.Reset()
		}
		wait := b.NextBackOff()
		log.Warn().Err(err).Str("channel", channel).Dur("retry_in", wait).Msg("realtime relay subscription failed")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// relayOnce runs one subscription. It reports whether the subscription was
// confirmed before it ended.
func relayOnce(ctx context.Context, client *redis.Client, channel string, local Publisher, ready *chan<- struct{}) (bool, error) {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	if *ready != nil {
		close(*ready)
		*ready = nil
	}
	log.Info().Str("channel", channel).Msg("realtime relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, fmt.Errorf("subscription %s closed", channel)
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Msg("dropping malformed realtime event")
				continue
			}
			if err := local.Publish(ctx, event); err != nil {
				if errors.Is(err, errHubStopped) || ctx.Err() != nil {
					return true, err
				}
				log.Error().Err(err).Str("type", event.Type).Str("tenant_id", event.TenantID.String()).Msg("failed to deliver relayed event")
			}
		}
	}
}
