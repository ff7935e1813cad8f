package hotkey

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/lemonvrct/vrct-core/internal/bus"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/protocol"
)

// Handler receives clean press/release edges for the push-to-talk key.
type Handler interface {
	Press() error
	Release()
}

// Listener subscribes to hotkey events published by edge input clients
// and forwards edges for the configured key. OS key auto-repeat shows up
// as duplicate pressed events; only the first edge of a hold is passed
// through.
type Listener struct {
	bus     *bus.Client
	cfg     config.HotkeyConfig
	handler Handler
	log     *slog.Logger

	mu   sync.Mutex
	sub  *nats.Subscription
	held bool
}

func NewListener(busClient *bus.Client, cfg config.HotkeyConfig, handler Handler, log *slog.Logger) *Listener {
	return &Listener{
		bus:     busClient,
		cfg:     cfg,
		handler: handler,
		log:     log.With(slog.String("component", "hotkey")),
	}
}

func (l *Listener) Start() error {
	sub, err := l.bus.Conn().Subscribe(protocol.SubjectHotkeyEvent, l.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", protocol.SubjectHotkeyEvent, err)
	}
	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()
	l.log.Info("listening for hotkey events", slog.String("key", l.cfg.Key))
	return nil
}

func (l *Listener) Stop() {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			l.log.Warn("hotkey unsubscribe failed", slog.String("error", err.Error()))
		}
	}
}

func (l *Listener) handle(msg *nats.Msg) {
	var event protocol.HotkeyEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		l.log.Warn("dropping malformed hotkey event", slog.String("error", err.Error()))
		return
	}
	l.Inject(event)
}

// Inject feeds an event directly, for in-process key sources that do not
// go through the bus. Same key filter and edge dedupe as bus events.
func (l *Listener) Inject(event protocol.HotkeyEvent) {
	if !strings.EqualFold(event.Key, l.cfg.Key) {
		return
	}

	l.mu.Lock()
	if event.Pressed == l.held {
		// auto-repeat or a stray release, not an edge
		l.mu.Unlock()
		return
	}
	l.held = event.Pressed
	l.mu.Unlock()

	if event.Pressed {
		if err := l.handler.Press(); err != nil {
			l.log.Warn("press handling failed", slog.String("error", err.Error()))
		}
		return
	}
	l.handler.Release()
}
