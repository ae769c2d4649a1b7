// Package bus is the notification fan-out boundary. Topics are scoped
// by branch and by counter; subscription membership lives in the bus
// itself, so nothing else in the process tracks who is listening.
package bus

import (
	"context"
	"encoding/json"
	"time"
)

type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type TopicEvent struct {
	Topic string `json:"topic"`
	Event
}

func BranchTopic(branchID string) string {
	return "branch:" + branchID
}

func CounterTopic(counterID string) string {
	return "counter:" + counterID
}

type Bus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)
}

// Subscription delivers events for the subscribed topics until closed.
// Delivery is best-effort to currently-subscribed consumers; there is
// no replay.
type Subscription interface {
	Events() <-chan TopicEvent
	Close() error
}
