package dispatch

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sender delivers finalized text to the chat surface. Implementations
// report failure for status reporting but must never deliver a payload
// over the protocol limit.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// TruncationMarker replaces the tail of an over-long payload so the cut
// is visible to readers.
const TruncationMarker = "…"

// Sanitize removes characters the chatbox protocol cannot carry. Newlines
// separate the per-language lines and are kept; all other control
// characters are dropped.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Truncate bounds text to limit runes. When the text is cut the result is
// exactly limit runes and ends with the truncation marker.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit == 1 {
		return TruncationMarker
	}
	return string(runes[:limit-1]) + TruncationMarker
}
