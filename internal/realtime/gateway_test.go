package realtime

import (
	"testing"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/bus"
)

func TestParseSubscribe(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"subscribe branch", `{"action":"subscribe","branch_id":"b1"}`, true},
		{"subscribe counter", `{"action":"subscribe","counter_id":"c1"}`, true},
		{"unsubscribe", `{"action":"unsubscribe"}`, true},
		{"unknown action", `{"action":"ping"}`, false},
		{"missing action", `{"branch_id":"b1"}`, false},
		{"not json", `subscribe b1`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := parseSubscribe([]byte(tc.raw))
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
		})
	}
}

func TestSubscribeTopics(t *testing.T) {
	msg := subscribeMessage{Action: "subscribe", BranchID: "b1", CounterID: "c1"}
	topics := msg.topics()
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}
	if topics[0] != bus.BranchTopic("b1") || topics[1] != bus.CounterTopic("c1") {
		t.Fatalf("unexpected topics: %v", topics)
	}

	empty := subscribeMessage{Action: "subscribe"}
	if len(empty.topics()) != 0 {
		t.Fatal("expected no topics without ids")
	}
}
