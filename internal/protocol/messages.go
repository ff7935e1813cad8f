package protocol

import "time"

// HotkeyEvent is a press/release edge published by an edge input client.
// Repeats are not published; each event flips the key state.
type HotkeyEvent struct {
	Key       string    `json:"key"`
	Pressed   bool      `json:"pressed"`
	Timestamp time.Time `json:"timestamp"`
}

// AudioFrame carries PCM audio streamed from the capture client while the
// hotkey is held. Frames for one hold share a capture ID.
type AudioFrame struct {
	CaptureID  string `json:"capture_id"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// SessionStatus is the single terminal (or stage-progress) event emitted
// for a push-to-talk session.
type SessionStatus struct {
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Stage     string    `json:"stage,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectHotkeyEvent      = "input.hotkey"
	SubjectAudioFramePrefix = "audio.frame"
	SubjectSessionStatus    = "session.status"
)
