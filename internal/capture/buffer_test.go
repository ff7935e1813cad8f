package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
)

func pcmOf(durMS, sampleRate, channels int) []byte {
	frames := sampleRate * durMS / 1000
	return make([]byte, frames*2*channels)
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{PCM: pcmOf(2000, 16000, 1), SampleRate: 16000, Channels: 1}
	if got := buf.Duration(); got != 2*time.Second {
		t.Fatalf("expected 2s, got %v", got)
	}
	var nilBuf *Buffer
	if nilBuf.Duration() != 0 {
		t.Fatal("nil buffer should have zero duration")
	}
}

func TestBoundsRejectsShortCapture(t *testing.T) {
	cfg := config.CaptureConfig{SampleRate: 16000, Channels: 1, MinDurationMS: 500, MaxDurationMS: 30000}
	buf := &Buffer{PCM: pcmOf(50, 16000, 1), SampleRate: 16000, Channels: 1}
	_, err := bounds(cfg, buf)
	if !errors.Is(err, fault.ErrEmptyInput) {
		t.Fatalf("expected empty input error, got %v", err)
	}
}

func TestBoundsTruncatesLongCapture(t *testing.T) {
	cfg := config.CaptureConfig{SampleRate: 16000, Channels: 1, MinDurationMS: 500, MaxDurationMS: 1000}
	buf := &Buffer{PCM: pcmOf(3000, 16000, 1), SampleRate: 16000, Channels: 1}
	out, err := bounds(cfg, buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Duration() != time.Second {
		t.Fatalf("expected truncation to 1s, got %v", out.Duration())
	}
}

func TestMockRecorderHoldDuration(t *testing.T) {
	cfg := config.CaptureConfig{SampleRate: 16000, Channels: 1, MinDurationMS: 500, MaxDurationMS: 30000}
	rec := NewMockRecorder(cfg)
	now := time.Unix(0, 0)
	rec.Clock = func() time.Time { return now }
	if err := rec.Begin(t.Context()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	now = now.Add(2 * time.Second)
	buf, err := rec.End()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if buf.Duration() != 2*time.Second {
		t.Fatalf("expected 2s of silence, got %v", buf.Duration())
	}
}

func TestMockRecorderShortHold(t *testing.T) {
	cfg := config.CaptureConfig{SampleRate: 16000, Channels: 1, MinDurationMS: 500}
	rec := NewMockRecorder(cfg)
	now := time.Unix(0, 0)
	rec.Clock = func() time.Time { return now }
	if err := rec.Begin(t.Context()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	now = now.Add(50 * time.Millisecond)
	if _, err := rec.End(); !errors.Is(err, fault.ErrEmptyInput) {
		t.Fatalf("expected empty input, got %v", err)
	}
}

func TestEncodeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer file.Close()

	buf := &Buffer{PCM: pcmOf(100, 16000, 1), SampleRate: 16000, Channels: 1}
	if err := EncodeWAV(file, buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() <= 44 {
		t.Fatalf("wav file suspiciously small: %d bytes", info.Size())
	}
}

func TestEncodeWAVUnaligned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer file.Close()
	buf := &Buffer{PCM: []byte{1}, SampleRate: 16000, Channels: 1}
	if err := EncodeWAV(file, buf); err == nil {
		t.Fatal("expected error for unaligned pcm")
	}
}
