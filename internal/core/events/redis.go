package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultStream is the Redis Stream events are appended to unless
// configured otherwise.
const DefaultStream = "tagkeeper:events"

// publishTimeout bounds the XADD round-trip so a stalled Redis never holds
// up rule evaluation.
const publishTimeout = 2 * time.Second

// RedisPublisher appends events to a Redis Stream via XADD. Consumers read
// through consumer groups and own their redelivery semantics.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher creates a publisher appending to the given stream.
func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream}
}

// Publish appends one event. The payload travels as a JSON field next to
// flat type/organization fields so consumers can filter without decoding.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":            event.Type,
			"organization_id": string(event.OrganizationID),
			"data":            string(payload),
		},
	}).Err()
}
