package refine

import (
	"context"
	"strings"
	"time"
)

type mockRefiner struct{}

func NewMockRefiner() Refiner { return &mockRefiner{} }

func (m *mockRefiner) Refine(ctx context.Context, text string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	return strings.TrimSpace(text), nil
}
