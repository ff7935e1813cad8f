package transcribe

import (
	"context"
	"fmt"

	"github.com/lemonvrct/vrct-core/internal/capture"
)

type mockRecognizer struct{}

func NewMockRecognizer() Recognizer {
	return &mockRecognizer{}
}

func (m *mockRecognizer) Transcribe(_ context.Context, buf *capture.Buffer) (Result, error) {
	return Result{
		Text:       fmt.Sprintf("[transcript duration=%s]", buf.Duration()),
		Language:   "und",
		Confidence: 0,
	}, nil
}
