package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

const DefaultRedisChannel = "posts:changed"

// RedisNotifier : Pub/Sub Redis, pratique quand le store est déjà Redis.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

var _ ports.ChangeNotifier = (*RedisNotifier)(nil)

func (r *RedisNotifier) PublishChange(ctx context.Context, evt ports.ChangeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (r *RedisNotifier) Subscribe(ctx context.Context, onChange func(context.Context, ports.ChangeEvent)) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel)

	// Attend la confirmation pour ne rien rater après le retour
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var evt ports.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				slog.Error("❌ Invalid change event", "channel", msg.Channel, "error", err)
				continue
			}
			onChange(context.Background(), evt)
		}
	}()

	return func() {
		_ = ps.Close()
		<-done
	}, nil
}
