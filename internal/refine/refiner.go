package refine

import "context"

// Refiner corrects speech-recognition artifacts in a raw transcript.
// Implementations are stateless; failures are classified via the fault
// package and the pipeline decides whether to degrade or abort.
type Refiner interface {
	Refine(ctx context.Context, text string) (string, error)
}
