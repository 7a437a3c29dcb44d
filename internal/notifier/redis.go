package notifier

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
)

const defaultChannel = "revisable:retroactive-change"

var _ Notifier = (*Redis)(nil)

// Redis publishes change events on a pub/sub channel. Useful when listeners
// run in the same deployment and a broker is overkill.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(addr, channel string) *Redis {
	if channel == "" {
		channel = defaultChannel
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
	})

	return &Redis{client: client, channel: channel}
}

func (r *Redis) Notify(ctx context.Context, event ChangeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, r.channel, value).Err()
}

// Subscribe returns a channel of change events published by other processes.
func (r *Redis) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}

	events := make(chan ChangeEvent)
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
