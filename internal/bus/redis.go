package bus

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// relayPayload is the wire form of an event mirrored through Redis.
type relayPayload struct {
	Topic  Topic  `json:"topic"`
	UserID string `json:"userId,omitempty"`
	Origin string `json:"origin"`
}

// RedisRelay mirrors local change events to other eventmart processes
// through a Redis channel and injects theirs back as TopicStoreChanged.
// This is the multi-process analogue of the browser's storage event:
// an eventually consistent reconciliation hint, never a correctness
// guarantee. Events may be lost or arrive late; no invariant depends on
// delivery.
type RedisRelay struct {
	client  *redis.Client
	bus     *Bus
	channel string
	origin  string
	cancel  context.CancelFunc
}

// NewRedisRelay connects to Redis at addr and binds the relay to b.
func NewRedisRelay(addr, channel string, b *Bus) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisRelay{
		client:  client,
		bus:     b,
		channel: channel,
		origin:  uuid.NewString(),
	}, nil
}

// Start begins mirroring in both directions until Stop is called.
func (r *RedisRelay) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	local := r.bus.Subscribe(TopicCartChanged, TopicProfileChanged)
	go func() {
		defer local.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-local.C:
				if !ok {
					return
				}
				// Never re-broadcast events that arrived from a peer.
				if evt.Remote {
					continue
				}
				r.publish(ctx, evt)
			}
		}
	}()

	pubsub := r.client.Subscribe(ctx, r.channel)
	go func() {
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
				r.inject(msg.Payload)
			}
		}
	}()
}

func (r *RedisRelay) publish(ctx context.Context, evt Event) {
	payload, err := json.Marshal(relayPayload{Topic: evt.Topic, UserID: evt.UserID, Origin: r.origin})
	if err != nil {
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		log.Printf("[bus] relay publish failed: %v", err)
	}
}

func (r *RedisRelay) inject(raw string) {
	var payload relayPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Printf("[bus] relay received malformed payload: %v", err)
		return
	}
	if payload.Origin == r.origin {
		return
	}
	r.bus.Publish(Event{Topic: TopicStoreChanged, UserID: payload.UserID, Remote: true})
}

// Stop halts both mirror directions and closes the Redis connection.
func (r *RedisRelay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.client.Close()
}
