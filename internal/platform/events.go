package platform

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// EventsChannel is the pub/sub channel domain events are published on.
const EventsChannel = "livescript.events"

// EventScriptGenerated is published after a generated script is stored.
const EventScriptGenerated = "script.generated"

// Event is the envelope written to EventsChannel.
type Event struct {
	Type       string    `json:"type"`
	Data       any       `json:"data"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ScriptGenerated is the payload of EventScriptGenerated.
type ScriptGenerated struct {
	ScriptID        string `json:"scriptId"`
	ProductID       string `json:"productId"`
	StyleTemplateID string `json:"styleTemplateId"`
}

// RedisPublisher publishes events with PUBLISH.
type RedisPublisher struct {
	Redis   *redis.Client
	Channel string
}

// NewRedisPublisher returns a publisher on EventsChannel.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{Redis: rdb, Channel: EventsChannel}
}

// Publish marshals the event and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, eventType string, data any) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, OccurredAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.Redis.Publish(ctx, p.Channel, payload).Err()
}
