package chathub

import (
	"context"
	"encoding/json"
	"log"
	"pairlab/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventSubscriber opens the redis subscription carrying room events.
type EventSubscriber interface {
	SubscribeEvents(ctx context.Context) *redis.PubSub
}

// StartPubSubListener subscribes to room events in a goroutine and dispatches
// every received event to local subscribers.
func (m *ManagerService) StartPubSubListener(ctx context.Context, sub EventSubscriber) {
	go func() {
		pubsub := sub.SubscribeEvents(ctx)
		defer pubsub.Close()

		m.ListenEvents(ctx, pubsub.Channel())
	}()
}

// ListenEvents decodes room events from msgs until ctx ends or msgs closes.
func (m *ManagerService) ListenEvents(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event models.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("ERROR: Failed to decode room event from redis: %v", err)
				continue
			}
			m.Dispatch(event)
		}
	}
}
