package hotkey

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/protocol"
)

type recordingHandler struct {
	mu       sync.Mutex
	presses  int
	releases int
}

func (h *recordingHandler) Press() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presses++
	return nil
}

func (h *recordingHandler) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
}

func (h *recordingHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presses, h.releases
}

func eventMsg(t *testing.T, key string, pressed bool) *nats.Msg {
	t.Helper()
	data, err := json.Marshal(protocol.HotkeyEvent{Key: key, Pressed: pressed, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return &nats.Msg{Subject: protocol.SubjectHotkeyEvent, Data: data}
}

func newTestListener(handler Handler) *Listener {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewListener(nil, config.HotkeyConfig{Key: "f13"}, handler, log)
}

func TestListenerForwardsEdges(t *testing.T) {
	handler := &recordingHandler{}
	l := newTestListener(handler)

	l.handle(eventMsg(t, "f13", true))
	l.handle(eventMsg(t, "f13", false))

	presses, releases := handler.counts()
	if presses != 1 || releases != 1 {
		t.Fatalf("presses=%d releases=%d, want 1/1", presses, releases)
	}
}

func TestListenerIgnoresOtherKeys(t *testing.T) {
	handler := &recordingHandler{}
	l := newTestListener(handler)

	l.handle(eventMsg(t, "f14", true))
	l.handle(eventMsg(t, "f14", false))

	if presses, releases := handler.counts(); presses != 0 || releases != 0 {
		t.Fatalf("foreign key forwarded: presses=%d releases=%d", presses, releases)
	}
}

func TestListenerKeyMatchIsCaseInsensitive(t *testing.T) {
	handler := &recordingHandler{}
	l := newTestListener(handler)

	l.handle(eventMsg(t, "F13", true))
	if presses, _ := handler.counts(); presses != 1 {
		t.Fatalf("presses=%d, want 1", presses)
	}
}

func TestListenerSuppressesAutoRepeat(t *testing.T) {
	handler := &recordingHandler{}
	l := newTestListener(handler)

	l.handle(eventMsg(t, "f13", true))
	l.handle(eventMsg(t, "f13", true))
	l.handle(eventMsg(t, "f13", true))
	l.handle(eventMsg(t, "f13", false))

	presses, releases := handler.counts()
	if presses != 1 || releases != 1 {
		t.Fatalf("auto-repeat leaked: presses=%d releases=%d", presses, releases)
	}
}

func TestListenerIgnoresStrayRelease(t *testing.T) {
	handler := &recordingHandler{}
	l := newTestListener(handler)

	l.handle(eventMsg(t, "f13", false))
	if _, releases := handler.counts(); releases != 0 {
		t.Fatalf("stray release forwarded %d times", releases)
	}
}

func TestListenerInjectBypassesBus(t *testing.T) {
	handler := &recordingHandler{}
	l := newTestListener(handler)

	l.Inject(protocol.HotkeyEvent{Key: "f13", Pressed: true, Timestamp: time.Now()})
	l.Inject(protocol.HotkeyEvent{Key: "f13", Pressed: false, Timestamp: time.Now()})

	presses, releases := handler.counts()
	if presses != 1 || releases != 1 {
		t.Fatalf("presses=%d releases=%d, want 1/1", presses, releases)
	}
}

func TestListenerDropsMalformedPayload(t *testing.T) {
	handler := &recordingHandler{}
	l := newTestListener(handler)

	l.handle(&nats.Msg{Subject: protocol.SubjectHotkeyEvent, Data: []byte("not json")})
	if presses, releases := handler.counts(); presses != 0 || releases != 0 {
		t.Fatal("malformed payload forwarded")
	}
}
