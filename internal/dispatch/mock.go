package dispatch

import (
	"context"
	"sync"
)

// MockSender records payloads, optionally failing with scripted errors.
// The same sanitization and truncation as the OSC sender applies so tests
// observe exactly what would reach the chatbox.
type MockSender struct {
	MaxChars int
	// Errs are returned in order for successive calls; nil entries succeed.
	Errs []error

	mu    sync.Mutex
	calls int
	Sent  []string
}

func (m *MockSender) Send(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.calls
	m.calls++
	if call < len(m.Errs) && m.Errs[call] != nil {
		return m.Errs[call]
	}
	limit := m.MaxChars
	if limit <= 0 {
		limit = 144
	}
	m.Sent = append(m.Sent, Truncate(Sanitize(text), limit))
	return nil
}

// Payloads returns a copy of everything delivered so far.
func (m *MockSender) Payloads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Sent...)
}
