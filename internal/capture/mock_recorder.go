package capture

import (
	"context"
	"sync"
	"time"

	"github.com/lemonvrct/vrct-core/internal/config"
)

// MockRecorder synthesizes silence for the real hold duration, or replays
// scripted PCM. Used in mock capture mode and by tests.
type MockRecorder struct {
	Cfg config.CaptureConfig
	// PCM, when set, is returned instead of synthesized silence.
	PCM []byte
	// BeginErr and EndErr force failures at the respective call.
	BeginErr error
	EndErr   error
	// Clock is swappable for tests; defaults to time.Now.
	Clock func() time.Time

	mu      sync.Mutex
	started time.Time
	aborted bool
}

func NewMockRecorder(cfg config.CaptureConfig) *MockRecorder {
	return &MockRecorder{Cfg: cfg}
}

func (m *MockRecorder) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *MockRecorder) Begin(_ context.Context) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = m.now()
	return nil
}

func (m *MockRecorder) End() (*Buffer, error) {
	if m.EndErr != nil {
		return nil, m.EndErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	pcm := m.PCM
	if pcm == nil {
		held := m.now().Sub(m.started)
		frames := int(held.Seconds() * float64(m.Cfg.SampleRate))
		pcm = make([]byte, frames*2*m.Cfg.Channels)
	}
	buf := &Buffer{PCM: pcm, SampleRate: m.Cfg.SampleRate, Channels: m.Cfg.Channels}
	return bounds(m.Cfg, buf)
}

func (m *MockRecorder) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted = true
	m.PCM = nil
}

// Aborted reports whether Abort was called; test hook.
func (m *MockRecorder) Aborted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborted
}
