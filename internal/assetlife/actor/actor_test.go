package actor_test

import (
	"context"
	"testing"

	"github.com/assetlife/server/internal/assetlife/actor"
)

func TestFromContext(t *testing.T) {
	if got := actor.FromContext(context.Background()); got != "" {
		t.Fatalf("empty context returned %q", got)
	}

	ctx := actor.WithID(context.Background(), "  u-42 ")
	if got := actor.FromContext(ctx); got != "u-42" {
		t.Fatalf("FromContext = %q, want u-42", got)
	}
}
