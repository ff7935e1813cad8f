package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lemonvrct/vrct-core/internal/capture"
)

// State is a stage of the push-to-talk pipeline.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateRefining
	StateTranslating
	StateDispatching
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateRefining:
		return "refining"
	case StateTranslating:
		return "translating"
	case StateDispatching:
		return "dispatching"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a session.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

var transitions = map[State][]State{
	StateIdle:         {StateRecording},
	StateRecording:    {StateTranscribing, StateFailed, StateCancelled},
	StateTranscribing: {StateRefining, StateFailed, StateCancelled},
	StateRefining:     {StateTranslating, StateFailed, StateCancelled},
	StateTranslating:  {StateDispatching, StateFailed, StateCancelled},
	StateDispatching:  {StateSucceeded, StateFailed},
}

// CanTransition reports whether from→to is a legal stage transition.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transcript is the raw speech-to-text output. Immutable once set.
type Transcript struct {
	Text       string
	Language   string
	Confidence float64
}

// Refinement is the corrected transcript. Fallback marks the degraded path
// where the raw transcript was carried forward unchanged.
type Refinement struct {
	Text     string
	Fallback bool
}

// Translation is one target-language rendering of the refined text.
type Translation struct {
	Language string
	Text     string
}

// Result is the single terminal outcome of a session.
type Result struct {
	State          State
	Stage          string
	Reason         string
	DispatchedText string
}

// Session is one push-to-talk cycle. Artifacts are populated strictly in
// pipeline order; setters reject out-of-order writes.
type Session struct {
	ID        string
	StartedAt time.Time

	mu           sync.Mutex
	state        State
	audio        *capture.Buffer
	transcript   *Transcript
	refinement   *Refinement
	translations []Translation
	result       *Result
}

// New allocates a session in the recording state.
func New(now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		state:     StateRecording,
	}
}

// State returns the current pipeline state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Advance moves the session to next, rejecting illegal transitions and any
// transition out of a terminal state.
func (s *Session) Advance(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return fmt.Errorf("session %s already terminal in %s", s.ID, s.state)
	}
	if !CanTransition(s.state, next) {
		return fmt.Errorf("illegal transition %s -> %s", s.state, next)
	}
	s.state = next
	return nil
}

func (s *Session) SetAudio(buf *capture.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audio != nil {
		return fmt.Errorf("session %s audio already set", s.ID)
	}
	s.audio = buf
	return nil
}

func (s *Session) Audio() *capture.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audio
}

func (s *Session) SetTranscript(t Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audio == nil {
		return fmt.Errorf("session %s transcript before audio", s.ID)
	}
	if s.transcript != nil {
		return fmt.Errorf("session %s transcript already set", s.ID)
	}
	s.transcript = &t
	return nil
}

func (s *Session) Transcript() (Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcript == nil {
		return Transcript{}, false
	}
	return *s.transcript, true
}

func (s *Session) SetRefinement(r Refinement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcript == nil {
		return fmt.Errorf("session %s refinement before transcript", s.ID)
	}
	if s.refinement != nil {
		return fmt.Errorf("session %s refinement already set", s.ID)
	}
	s.refinement = &r
	return nil
}

func (s *Session) Refinement() (Refinement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refinement == nil {
		return Refinement{}, false
	}
	return *s.refinement, true
}

func (s *Session) SetTranslations(ts []Translation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refinement == nil {
		return fmt.Errorf("session %s translations before refinement", s.ID)
	}
	if s.translations != nil {
		return fmt.Errorf("session %s translations already set", s.ID)
	}
	s.translations = append([]Translation(nil), ts...)
	return nil
}

func (s *Session) Translations() []Translation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Translation(nil), s.translations...)
}

// Finish records the terminal result. Exactly one call succeeds.
func (s *Session) Finish(res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return fmt.Errorf("session %s already finished as %s", s.ID, s.result.State)
	}
	if !res.State.Terminal() {
		return fmt.Errorf("finish with non-terminal state %s", res.State)
	}
	s.state = res.State
	s.result = &res
	return nil
}

func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}
