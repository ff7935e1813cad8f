package refine

import (
	"context"
	"testing"
	"time"

	"github.com/lemonvrct/vrct-core/internal/config"
)

func configWithKey() config.RefineConfig {
	return config.RefineConfig{APIKey: "test-key", Model: "deepseek-chat"}
}

func TestMockRefinerTrims(t *testing.T) {
	r := NewMockRefiner()
	got, err := r.Refine(t.Context(), "  hello world  ")
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("refined = %q", got)
	}
}

func TestMockRefinerHonorsContext(t *testing.T) {
	r := NewMockRefiner()
	ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
	defer cancel()
	if _, err := r.Refine(ctx, "hello"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestOpenAIRefinerPassesShortInputThrough(t *testing.T) {
	// one rune is below the correction threshold; no request is made, so
	// no credentials or server are needed
	r := NewOpenAIRefiner(configWithKey())
	got, err := r.Refine(t.Context(), "a")
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if got != "a" {
		t.Fatalf("short input mutated: %q", got)
	}
	got, err = r.Refine(t.Context(), "   ")
	if err != nil || got != "   " {
		t.Fatalf("whitespace input mutated: %q err=%v", got, err)
	}
}
