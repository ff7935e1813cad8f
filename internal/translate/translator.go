package translate

import "context"

// Translator renders text into one target language. Implementations are
// stateless; given identical input and configuration the output must be
// identical, so the pipeline can retry safely.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
