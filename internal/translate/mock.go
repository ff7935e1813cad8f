package translate

import (
	"context"
	"fmt"
	"time"
)

type mockTranslator struct{}

func NewMockTranslator() Translator { return &mockTranslator{} }

func (m *mockTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	return fmt.Sprintf("[%s->%s] %s", sourceLang, targetLang, text), nil
}
