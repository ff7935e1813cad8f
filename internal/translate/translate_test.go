package translate

import (
	"context"
	"testing"
	"time"
)

func TestMockTranslatorIsDeterministic(t *testing.T) {
	tr := NewMockTranslator()
	first, err := tr.Translate(t.Context(), "hello", "en", "ja")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	second, err := tr.Translate(t.Context(), "hello", "en", "ja")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if first != second {
		t.Fatalf("same input produced %q then %q", first, second)
	}
	if first != "[en->ja] hello" {
		t.Fatalf("translation = %q", first)
	}
}

func TestMockTranslatorHonorsContext(t *testing.T) {
	tr := NewMockTranslator()
	ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
	defer cancel()
	if _, err := tr.Translate(ctx, "hello", "en", "ja"); err == nil {
		t.Fatal("expected context error")
	}
}
