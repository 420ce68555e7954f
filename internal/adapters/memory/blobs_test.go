package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/pinmap/internal/adapters/memory"
	"github.com/samirrijal/pinmap/internal/core/domain"
)

func TestBlobs(t *testing.T) {
	ctx := context.Background()
	b := memory.NewBlobs()

	if _, err := b.Get(ctx, "k"); !errors.Is(err, domain.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}

	value := []byte("v1")
	if err := b.Set(ctx, "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'

	got, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v1" {
		t.Errorf("stored value must be a copy, got %s", got)
	}
	got[0] = 'y'
	if again, _ := b.Get(ctx, "k"); string(again) != "v1" {
		t.Errorf("returned value must be a copy, got %s", again)
	}
}
