package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hypebeast/go-osc/osc"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
)

// chatboxAddress is VRChat's chat input OSC address. The payload is the
// text, an immediate-send flag (false opens the keyboard instead) and a
// notification-sound flag.
const chatboxAddress = "/chatbox/input"

type oscSender struct {
	client *osc.Client
	cfg    config.DispatchConfig
}

// NewOSCSender sends chatbox messages to VRChat over OSC/UDP.
func NewOSCSender(cfg config.DispatchConfig) Sender {
	return &oscSender{
		client: osc.NewClient(cfg.Host, cfg.Port),
		cfg:    cfg,
	}
}

func (s *oscSender) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return fault.Transient("dispatch", err)
	}
	payload := Truncate(Sanitize(text), s.cfg.MaxChars)
	if payload == "" {
		return fault.Permanent("dispatch", errors.New("empty payload after sanitization"))
	}

	msg := osc.NewMessage(chatboxAddress)
	msg.Append(payload)
	msg.Append(s.cfg.Immediate)
	msg.Append(s.cfg.Notify)

	if err := s.client.Send(msg); err != nil {
		// UDP send failures are local socket errors; worth retrying
		return fault.Transient("dispatch", fmt.Errorf("send chatbox message: %w", err))
	}
	return nil
}
