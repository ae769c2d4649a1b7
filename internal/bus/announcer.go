package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// announceQueue holds reduced ticket:called payloads for announcement
// consumers (display boards, TTS workers) that need durable delivery.
const announceQueue = "ticket.called"

// Announcer pushes call events onto a durable RabbitMQ queue. Unlike
// the Redis fan-out, messages survive broker restarts and consumers may
// attach late.
type Announcer struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAnnouncer(url string) *Announcer {
	return &Announcer{url: url}
}

func (a *Announcer) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ch, err := a.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", announceQueue, false, false, pub); err != nil {
		// Stale channel after a broker restart: reconnect and retry once.
		a.reset()
		ch, err = a.channel()
		if err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, "", announceQueue, false, false, pub)
	}
	return nil
}

func (a *Announcer) channel() (*amqp.Channel, error) {
	if a.ch != nil {
		return a.ch, nil
	}
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(announceQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	a.conn = conn
	a.ch = ch
	return ch, nil
}

func (a *Announcer) reset() {
	if a.ch != nil {
		_ = a.ch.Close()
		a.ch = nil
	}
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}

func (a *Announcer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}
