package services_test

import (
	"context"
	"testing"

	"plaques2gallery/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithBatchID(ctx, 4)
	ctx = services.WithPlaqueID(ctx, "hall/IMG_0042.jpg")
	ctx = services.WithStage(ctx, "search")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.BatchIDFromContext(ctx); !ok || id != 4 {
		t.Fatalf("unexpected batch id: %v %v", id, ok)
	}
	if id, ok := services.PlaqueIDFromContext(ctx); !ok || id != "hall/IMG_0042.jpg" {
		t.Fatalf("unexpected plaque id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "search" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithPlaqueID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.PlaqueIDFromContext(ctx); ok {
		t.Fatal("expected no plaque id value")
	}
}
