// Package relay moves committed outbox rows onto the notification bus.
// Events reach the bus only after the transaction that produced them
// has committed, and the durable offset keeps delivery at-least-once
// across restarts.
package relay

import (
	"context"
	"log"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/bus"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store"
)

const consumerName = "relay"

type Publisher interface {
	Publish(ctx context.Context, topic string, event bus.Event) error
}

// Announcer is the durable side-channel for call events; nil disables it.
type Announcer interface {
	Publish(ctx context.Context, event bus.Event) error
}

type Relay struct {
	store     store.OutboxStore
	publisher Publisher
	announcer Announcer
	interval  time.Duration
	batchSize int
	retention time.Duration
}

type Options struct {
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

func New(outbox store.OutboxStore, publisher Publisher, announcer Announcer, options Options) *Relay {
	interval := options.Interval
	if interval <= 0 {
		interval = time.Second
	}
	batch := options.BatchSize
	if batch <= 0 {
		batch = 100
	}
	retention := options.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	return &Relay{
		store:     outbox,
		publisher: publisher,
		announcer: announcer,
		interval:  interval,
		batchSize: batch,
		retention: retention,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				log.Printf("relay drain error: %v", err)
			}
		}
	}
}

// Drain ships one batch of pending events and advances the offset.
func (r *Relay) Drain(ctx context.Context) error {
	offset, err := r.store.GetRelayOffset(ctx, consumerName)
	if err != nil {
		return err
	}

	events, err := r.store.ListOutboxEvents(ctx, offset, r.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		envelope := bus.Event{
			Type:      event.Type,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt,
		}

		if event.Type == store.EventTicketCalled && r.announcer != nil {
			// The announcement queue is the durable path; do not advance
			// past an event it has not accepted.
			if err := r.announcer.Publish(ctx, envelope); err != nil {
				log.Printf("relay announce error: %v", err)
				break
			}
		}

		topics := []string{bus.BranchTopic(event.BranchID)}
		if event.CounterID != nil {
			topics = append(topics, bus.CounterTopic(*event.CounterID))
		}
		for _, topic := range topics {
			if err := r.publisher.Publish(ctx, topic, envelope); err != nil {
				log.Printf("relay publish %s error: %v", topic, err)
			}
		}

		offset.LastEventTime = event.CreatedAt
		offset.LastEventID = event.EventID
	}

	if err := r.store.UpdateRelayOffset(ctx, consumerName, offset); err != nil {
		return err
	}
	return r.store.CleanupOutbox(ctx, offset.LastEventTime.Add(-r.retention))
}
