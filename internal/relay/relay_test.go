package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/bus"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store"
)

type fakeOutbox struct {
	events  []store.OutboxEvent
	offset  store.OutboxOffset
	updated *store.OutboxOffset
	cleaned *time.Time
}

func (f *fakeOutbox) ListOutboxEvents(ctx context.Context, offset store.OutboxOffset, limit int) ([]store.OutboxEvent, error) {
	var pending []store.OutboxEvent
	for _, event := range f.events {
		if event.CreatedAt.After(offset.LastEventTime) {
			pending = append(pending, event)
		}
	}
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *fakeOutbox) GetRelayOffset(ctx context.Context, consumer string) (store.OutboxOffset, error) {
	return f.offset, nil
}

func (f *fakeOutbox) UpdateRelayOffset(ctx context.Context, consumer string, offset store.OutboxOffset) error {
	f.updated = &offset
	return nil
}

func (f *fakeOutbox) CleanupOutbox(ctx context.Context, before time.Time) error {
	f.cleaned = &before
	return nil
}

type publishedEvent struct {
	topic string
	event bus.Event
}

type fakePublisher struct {
	published []publishedEvent
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, event bus.Event) error {
	f.published = append(f.published, publishedEvent{topic: topic, event: event})
	return nil
}

type fakeAnnouncer struct {
	published []bus.Event
	err       error
}

func (f *fakeAnnouncer) Publish(ctx context.Context, event bus.Event) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

func outboxEvent(id, branchID string, counterID *string, eventType string, createdAt time.Time) store.OutboxEvent {
	return store.OutboxEvent{
		EventID:   id,
		BranchID:  branchID,
		CounterID: counterID,
		Type:      eventType,
		Payload:   json.RawMessage(`{"ticket_number":"A-001"}`),
		CreatedAt: createdAt,
	}
}

func TestDrainRoutesTopics(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	counterID := "counter-1"
	outbox := &fakeOutbox{
		events: []store.OutboxEvent{
			outboxEvent("event-1", "branch-1", nil, store.EventTicketCreated, base),
			outboxEvent("event-2", "branch-1", &counterID, store.EventTicketUpdated, base.Add(time.Second)),
		},
	}
	publisher := &fakePublisher{}

	r := New(outbox, publisher, nil, Options{})
	if err := r.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(publisher.published) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(publisher.published))
	}
	if publisher.published[0].topic != bus.BranchTopic("branch-1") {
		t.Fatalf("unexpected first topic %q", publisher.published[0].topic)
	}
	if publisher.published[2].topic != bus.CounterTopic("counter-1") {
		t.Fatalf("unexpected counter topic %q", publisher.published[2].topic)
	}

	if outbox.updated == nil || outbox.updated.LastEventID != "event-2" {
		t.Fatalf("offset not advanced to last event: %+v", outbox.updated)
	}
	if outbox.cleaned == nil {
		t.Fatal("expected cleanup to run")
	}
}

func TestDrainAnnouncesCalledTickets(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	counterID := "counter-1"
	outbox := &fakeOutbox{
		events: []store.OutboxEvent{
			outboxEvent("event-1", "branch-1", &counterID, store.EventTicketCalled, base),
		},
	}
	publisher := &fakePublisher{}
	announcer := &fakeAnnouncer{}

	r := New(outbox, publisher, announcer, Options{})
	if err := r.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(announcer.published) != 1 {
		t.Fatalf("expected 1 announced event, got %d", len(announcer.published))
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected branch and counter publish, got %d", len(publisher.published))
	}
}

func TestDrainStopsOnAnnouncerFailure(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	outbox := &fakeOutbox{
		events: []store.OutboxEvent{
			outboxEvent("event-1", "branch-1", nil, store.EventTicketCreated, base),
			outboxEvent("event-2", "branch-1", nil, store.EventTicketCalled, base.Add(time.Second)),
			outboxEvent("event-3", "branch-1", nil, store.EventTicketUpdated, base.Add(2*time.Second)),
		},
	}
	publisher := &fakePublisher{}
	announcer := &fakeAnnouncer{err: errors.New("amqp down")}

	r := New(outbox, publisher, announcer, Options{})
	if err := r.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	// Only the event before the failed announcement is delivered; the
	// offset stays behind the called event so the next drain retries it.
	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.published))
	}
	if outbox.updated == nil || outbox.updated.LastEventID != "event-1" {
		t.Fatalf("offset advanced past failed announcement: %+v", outbox.updated)
	}
}

func TestDrainNoEvents(t *testing.T) {
	outbox := &fakeOutbox{}
	publisher := &fakePublisher{}

	r := New(outbox, publisher, nil, Options{})
	if err := r.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	if outbox.updated != nil {
		t.Fatal("offset should not move without events")
	}
	if outbox.cleaned != nil {
		t.Fatal("cleanup should not run without events")
	}
}
