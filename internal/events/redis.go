package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RpGmAx/ronin-mission-5/internal/storage"
)

const (
	KeyAddr     = "addr"
	KeyPassword = "password"
	KeyDB       = "db"
	KeyChannel  = "channel"
)

// DefaultChannel is the Redis pub/sub channel events are published to.
const DefaultChannel = "ronin:events"

// RedisSink publishes events to a Redis pub/sub channel as JSON.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink creates a sink from a configuration map and verifies the
// connection.
func NewRedisSink(ctx context.Context, config map[string]string) (*RedisSink, error) {
	addr := storage.GetString(config, KeyAddr, "localhost:6379")
	password := storage.GetString(config, KeyPassword, "")
	channel := storage.GetString(config, KeyChannel, DefaultChannel)

	db, err := storage.GetInt(config, KeyDB, 0)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis-events", KeyDB, config[KeyDB], err.Error())
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, storage.NewConfigErrorWithCause("redis-events", KeyAddr, "failed to connect", err)
	}

	slog.Info("redis event sink initialized", "addr", addr, "channel", channel)
	return &RedisSink{client: client, channel: channel}, nil
}

// NewRedisSinkWithClient creates a sink with an existing Redis client.
func NewRedisSinkWithClient(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}
}

// Emit publishes the event. Failures are logged and swallowed.
func (s *RedisSink) Emit(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("failed to marshal event", "type", string(ev.Type), "error", err)
		return
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		slog.Warn("failed to publish event", "type", string(ev.Type), "error", err)
	}
}

// Subscribe returns a channel of events published to the sink's channel.
// The returned channel closes when ctx is cancelled.
func (s *RedisSink) Subscribe(ctx context.Context) <-chan Event {
	pubsub := s.client.Subscribe(ctx, s.channel)
	out := make(chan Event, defaultBufferSize)

	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("malformed event payload", "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// Close closes the underlying Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
