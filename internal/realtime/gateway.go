// Package realtime bridges SockJS sessions to the notification bus.
// A client subscribes to branch and counter rooms; the bus tracks the
// membership, so the gateway holds no registry of its own.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/bus"

	"github.com/igm/sockjs-go/sockjs"
)

type Gateway struct {
	bus bus.Bus
}

func NewGateway(b bus.Bus) *Gateway {
	return &Gateway{bus: b}
}

func (g *Gateway) Handler(prefix string) http.Handler {
	return sockjs.NewHandler(prefix, sockjs.DefaultOptions, g.handleSession)
}

type subscribeMessage struct {
	Action    string `json:"action"`
	BranchID  string `json:"branch_id"`
	CounterID string `json:"counter_id"`
}

func parseSubscribe(data []byte) (subscribeMessage, bool) {
	var msg subscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return subscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return subscribeMessage{}, false
	}
	return msg, true
}

func (msg subscribeMessage) topics() []string {
	var topics []string
	if msg.BranchID != "" {
		topics = append(topics, bus.BranchTopic(msg.BranchID))
	}
	if msg.CounterID != "" {
		topics = append(topics, bus.CounterTopic(msg.CounterID))
	}
	return topics
}

func (g *Gateway) handleSession(session sockjs.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var current bus.Subscription
	defer func() {
		if current != nil {
			_ = current.Close()
		}
	}()

	for {
		raw, err := session.Recv()
		if err != nil {
			return
		}
		msg, ok := parseSubscribe([]byte(raw))
		if !ok {
			continue
		}

		if current != nil {
			_ = current.Close()
			current = nil
		}
		if msg.Action == "unsubscribe" {
			continue
		}

		topics := msg.topics()
		if len(topics) == 0 {
			continue
		}
		sub, err := g.bus.Subscribe(ctx, topics...)
		if err != nil {
			log.Printf("realtime subscribe error: %v", err)
			_ = session.Close(4500, "subscribe failed")
			return
		}
		current = sub
		go forward(session, sub)
	}
}

// forward drains a subscription into the session; it exits when the
// subscription is closed.
func forward(session sockjs.Session, sub bus.Subscription) {
	for event := range sub.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if err := session.Send(string(payload)); err != nil {
			return
		}
	}
}
