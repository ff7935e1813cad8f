package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lemonvrct/vrct-core/internal/bus"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
	"github.com/lemonvrct/vrct-core/internal/protocol"
	"github.com/nats-io/nats.go"
)

// busRecorder accumulates PCM frames published by the edge capture client
// on the audio frame subject. The edge owns the device; losing the bus
// connection mid-capture is reported as a device failure.
//
// The first frame latches its capture ID; frames carrying any other ID
// (a stale hold still draining, a second edge client) are dropped. Within
// a capture, frames must arrive in sequence order and nothing is accepted
// after the final frame.
type busRecorder struct {
	cfg config.CaptureConfig
	bus *bus.Client

	mu        sync.Mutex
	sub       *nats.Subscription
	pcm       []byte
	maxLen    int
	started   bool
	closed    bool
	captureID string
	nextSeq   int
	finalSeen bool
}

// NewBusRecorder returns a recorder fed by bus audio frames.
func NewBusRecorder(cfg config.CaptureConfig, busClient *bus.Client) Recorder {
	maxLen := 0
	if cfg.MaxDurationMS > 0 {
		// keep a little slack past the cap; End trims precisely
		maxLen = cfg.SampleRate * cfg.Channels * 2 * (cfg.MaxDurationMS + 1000) / 1000
	}
	return &busRecorder{cfg: cfg, bus: busClient, maxLen: maxLen}
}

func (r *busRecorder) Begin(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("recorder already started")
	}
	subject := protocol.SubjectAudioFramePrefix + ".>"
	sub, err := r.bus.Conn().Subscribe(subject, r.handleFrame)
	if err != nil {
		return fmt.Errorf("subscribe audio frames: %w", err)
	}
	r.sub = sub
	r.started = true
	return nil
}

func (r *busRecorder) handleFrame(msg *nats.Msg) {
	var frame protocol.AudioFrame
	if err := json.Unmarshal(msg.Data, &frame); err != nil {
		r.bus.Logger().Warn("failed to decode audio frame", "error", err.Error())
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.finalSeen {
		return
	}
	if r.captureID == "" {
		r.captureID = frame.CaptureID
	} else if frame.CaptureID != r.captureID {
		// a stale hold still draining, or another edge client
		return
	}
	if frame.Sequence < r.nextSeq {
		// duplicate or reordered delivery; already past this point
		return
	}
	if frame.Sequence > r.nextSeq {
		r.bus.Logger().Warn("audio frame gap",
			"capture_id", r.captureID,
			"expected", r.nextSeq,
			"got", frame.Sequence)
	}
	r.nextSeq = frame.Sequence + 1
	if frame.Final {
		r.finalSeen = true
	}
	if r.maxLen > 0 && len(r.pcm) >= r.maxLen {
		return
	}
	r.pcm = append(r.pcm, frame.PCM...)
}

func (r *busRecorder) End() (*Buffer, error) {
	r.mu.Lock()
	if !r.started || r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("recorder not recording")
	}
	r.closed = true
	sub := r.sub
	pcm := r.pcm
	r.pcm = nil
	r.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if !r.bus.Healthy() {
		return nil, fmt.Errorf("%w: bus connection lost mid-capture", fault.ErrDevice)
	}

	buf := &Buffer{PCM: pcm, SampleRate: r.cfg.SampleRate, Channels: r.cfg.Channels}
	return bounds(r.cfg, buf)
}

func (r *busRecorder) Abort() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sub := r.sub
	r.pcm = nil
	r.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
}
