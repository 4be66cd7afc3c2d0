package context

import (
	"context"
	"testing"
)

func TestEnsureCorrelationIDKeepsExisting(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc")
	ctx, id := EnsureCorrelationID(ctx)
	if id != "abc" {
		t.Fatalf("expected existing correlation id, got %q", id)
	}
	if got := CorrelationIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestEnsureCorrelationIDGenerates(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	if len(id) != 26 {
		t.Fatalf("expected ULID, got %q", id)
	}
	if CorrelationIDFromContext(ctx) != id {
		t.Fatalf("expected generated id to be stored")
	}
}

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), "user", " 42 ")
	kind, id := ActorFromContext(ctx)
	if kind != "user" || id != "42" {
		t.Fatalf("unexpected actor %q/%q", kind, id)
	}
	if kind, id := ActorFromContext(context.Background()); kind != "" || id != "" {
		t.Fatalf("expected empty actor")
	}
}

func TestClientRoundTrip(t *testing.T) {
	ctx := WithClient(context.Background(), " 10.0.0.1 ", "curl/8.0")
	ip, ua := ClientFromContext(ctx)
	if ip != "10.0.0.1" || ua != "curl/8.0" {
		t.Fatalf("unexpected client %q %q", ip, ua)
	}
	ip, ua = ClientFromContext(context.Background())
	if ip != "" || ua != "" {
		t.Fatalf("expected empty client, got %q %q", ip, ua)
	}
}
