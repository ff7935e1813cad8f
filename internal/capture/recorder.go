package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
)

// Recorder accumulates audio for one hotkey hold. Begin starts sampling,
// End closes the buffer and returns it, Abort discards everything. A
// recorder is single-use; each session gets a fresh one.
type Recorder interface {
	Begin(ctx context.Context) error
	End() (*Buffer, error)
	Abort()
}

// Factory builds a recorder per session.
type Factory func() Recorder

// bounds applies the configured duration limits to a closed buffer.
// Below the minimum the capture is rejected outright; above the maximum
// the tail is dropped so downstream payloads stay bounded.
func bounds(cfg config.CaptureConfig, buf *Buffer) (*Buffer, error) {
	minDur := time.Duration(cfg.MinDurationMS) * time.Millisecond
	maxDur := time.Duration(cfg.MaxDurationMS) * time.Millisecond
	if buf.Duration() < minDur {
		return nil, fmt.Errorf("%w: got %s, need %s", fault.ErrEmptyInput, buf.Duration(), minDur)
	}
	if maxDur > 0 && buf.Duration() > maxDur {
		frames := int(maxDur.Seconds() * float64(buf.SampleRate))
		limit := frames * 2 * buf.Channels
		if limit < len(buf.PCM) {
			buf = &Buffer{PCM: buf.PCM[:limit], SampleRate: buf.SampleRate, Channels: buf.Channels}
		}
	}
	return buf, nil
}
