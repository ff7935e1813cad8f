package transcribe

import (
	"context"

	"github.com/lemonvrct/vrct-core/internal/capture"
)

// Result captures recognizer output.
type Result struct {
	Text       string
	Language   string
	Confidence float64
}

// Recognizer abstracts speech-to-text backends. Implementations are
// stateless across calls and classify failures via the fault package.
type Recognizer interface {
	Transcribe(ctx context.Context, buf *capture.Buffer) (Result, error)
}
