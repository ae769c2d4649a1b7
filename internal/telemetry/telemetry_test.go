package telemetry

import (
	"context"
	"testing"
)

func TestInitWithoutEndpoint(t *testing.T) {
	t.Setenv(endpointEnv, "")

	shutdown, err := Init(context.Background(), "queue-server-test")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown hook")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
