package fault

import (
	"context"
	"errors"
	"strconv"
	"time"

	openai "github.com/openai/openai-go/v3"
)

// FromOpenAI maps an OpenAI-compatible API error onto a failure class.
// Transport errors without an HTTP response count as transient.
func FromOpenAI(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(stage, err)
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return FromStatus(stage, apierr.StatusCode, retryAfterHeader(apierr), err)
	}
	return Transient(stage, err)
}

func retryAfterHeader(apierr *openai.Error) time.Duration {
	if apierr == nil || apierr.Response == nil {
		return 0
	}
	raw := apierr.Response.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
