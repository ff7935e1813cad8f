package fault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Class partitions adapter failures by how the pipeline must react.
type Class int

const (
	// ClassTransient covers network hiccups and timeouts; retry with backoff.
	ClassTransient Class = iota
	// ClassPermanent covers malformed input and auth failures; never retry.
	ClassPermanent
	// ClassRateLimited retries like transient but honours a suggested delay.
	ClassRateLimited
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a classified backend failure.
type Error struct {
	Class      Class
	Stage      string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(stage string, err error) error {
	return &Error{Class: ClassTransient, Stage: stage, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(stage string, err error) error {
	return &Error{Class: ClassPermanent, Stage: stage, Err: err}
}

// RateLimited wraps err as retryable with a backend-suggested delay.
func RateLimited(stage string, retryAfter time.Duration, err error) error {
	return &Error{Class: ClassRateLimited, Stage: stage, RetryAfter: retryAfter, Err: err}
}

// Capture-specific sentinel errors.
var (
	// ErrDevice reports the input device disappeared mid-capture.
	ErrDevice = errors.New("audio device unavailable")
	// ErrEmptyInput reports a capture below the minimum duration bound.
	ErrEmptyInput = errors.New("capture below minimum duration")
)

// Retryable reports whether the pipeline may retry after err.
// Timeouts without further classification count as transient.
func Retryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class != ClassPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrDevice) || errors.Is(err, ErrEmptyInput) {
		return false
	}
	return false
}

// RetryAfter returns the backend-suggested delay, zero if none.
func RetryAfter(err error) time.Duration {
	var fe *Error
	if errors.As(err, &fe) && fe.Class == ClassRateLimited {
		return fe.RetryAfter
	}
	return 0
}

// ClassOf returns the failure class for err. Unclassified errors and
// deadline expiry map to transient; capture sentinels are permanent.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	if errors.Is(err, ErrDevice) || errors.Is(err, ErrEmptyInput) {
		return ClassPermanent
	}
	return ClassTransient
}

// FromStatus classifies an HTTP response from a remote backend.
func FromStatus(stage string, status int, retryAfter time.Duration, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return RateLimited(stage, retryAfter, err)
	case status >= 500, status == http.StatusRequestTimeout:
		return Transient(stage, err)
	default:
		return Permanent(stage, err)
	}
}
