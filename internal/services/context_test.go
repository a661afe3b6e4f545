package services_test

import (
	"context"
	"testing"

	"stagehand/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.BroadcastIDFromContext(ctx); ok {
		t.Fatal("expected empty context to carry no broadcast id")
	}

	ctx = services.WithBroadcastID(ctx, "b-1")
	ctx = services.WithActionID(ctx, "a-2")
	ctx = services.WithRequestID(ctx, "req-3")

	if id, ok := services.BroadcastIDFromContext(ctx); !ok || id != "b-1" {
		t.Fatalf("broadcast id = %q, %v", id, ok)
	}
	if id, ok := services.ActionIDFromContext(ctx); !ok || id != "a-2" {
		t.Fatalf("action id = %q, %v", id, ok)
	}
	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-3" {
		t.Fatalf("request id = %q, %v", id, ok)
	}
}

func TestContextIgnoresEmptyValues(t *testing.T) {
	ctx := services.WithBroadcastID(context.Background(), "")
	if _, ok := services.BroadcastIDFromContext(ctx); ok {
		t.Fatal("expected empty broadcast id to be dropped")
	}
}
