package pipeline

import (
	"strings"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/session"
)

// composeMessages lays out the chatbox payloads: translations in the
// configured order, then the refined source text. Combined mode joins
// everything into one newline-separated message; otherwise each line is
// its own message.
func composeMessages(cfg config.DispatchConfig, refined string, translations []session.Translation) []string {
	var lines []string
	for _, tr := range translations {
		if tr.Text != "" {
			lines = append(lines, tr.Text)
		}
	}
	if cfg.IncludeOriginal && refined != "" {
		lines = append(lines, refined)
	}
	if len(lines) == 0 {
		return nil
	}
	if cfg.Combine {
		return []string{strings.Join(lines, "\n")}
	}
	return lines
}
