package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lemonvrct/vrct-core/internal/capture"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stt.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func testBuffer() *capture.Buffer {
	return &capture.Buffer{PCM: make([]byte, 32000), SampleRate: 16000, Channels: 1}
}

func TestNewExecRecognizerRejectsBadCommands(t *testing.T) {
	if _, err := NewExecRecognizer(config.TranscribeConfig{Command: ""}); err == nil {
		t.Fatal("empty command accepted")
	}
	if _, err := NewExecRecognizer(config.TranscribeConfig{Command: `whisper "unterminated`}); err == nil {
		t.Fatal("unbalanced quoting accepted")
	}
}

func TestExecRecognizerParsesOutput(t *testing.T) {
	script := writeScript(t, `echo '{"text":"hello from cli","language":"en","confidence":0.92}'`)
	r, err := NewExecRecognizer(config.TranscribeConfig{Command: script})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	res, err := r.Transcribe(t.Context(), testBuffer())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if res.Text != "hello from cli" || res.Language != "en" || res.Confidence != 0.92 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExecRecognizerPassesArguments(t *testing.T) {
	script := writeScript(t, `printf '{"text":"%s"}' "$*"`)
	r, err := NewExecRecognizer(config.TranscribeConfig{
		Command:   script,
		ModelPath: "/models/ggml-base.bin",
		Language:  "ja",
	})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	res, err := r.Transcribe(t.Context(), testBuffer())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	for _, want := range []string{"--audio", "--model /models/ggml-base.bin", "--language ja"} {
		if !strings.Contains(res.Text, want) {
			t.Fatalf("command args %q missing %q", res.Text, want)
		}
	}
}

func TestExecRecognizerCommandFailureIsPermanent(t *testing.T) {
	script := writeScript(t, `echo "model not found" >&2; exit 3`)
	r, err := NewExecRecognizer(config.TranscribeConfig{Command: script})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	_, err = r.Transcribe(t.Context(), testBuffer())
	if err == nil {
		t.Fatal("expected failure")
	}
	if fault.ClassOf(err) != fault.ClassPermanent {
		t.Fatalf("class = %s, want permanent", fault.ClassOf(err))
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("stderr not surfaced: %v", err)
	}
}

func TestExecRecognizerTimeoutIsTransient(t *testing.T) {
	script := writeScript(t, `sleep 5`)
	r, err := NewExecRecognizer(config.TranscribeConfig{Command: script})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = r.Transcribe(ctx, testBuffer())
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if !fault.Retryable(err) {
		t.Fatalf("timeout should be retryable, got %v", err)
	}
}

func TestExecRecognizerRejectsBadJSON(t *testing.T) {
	script := writeScript(t, `echo 'not json'`)
	r, err := NewExecRecognizer(config.TranscribeConfig{Command: script})
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	_, err = r.Transcribe(t.Context(), testBuffer())
	if err == nil {
		t.Fatal("expected decode failure")
	}
	var fe *fault.Error
	if !errors.As(err, &fe) || fe.Class != fault.ClassPermanent {
		t.Fatalf("decode failure should be permanent, got %v", err)
	}
}

func TestMockRecognizerReportsDuration(t *testing.T) {
	r := NewMockRecognizer()
	res, err := r.Transcribe(t.Context(), testBuffer())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !strings.Contains(res.Text, "1s") {
		t.Fatalf("mock transcript %q does not carry the buffer duration", res.Text)
	}
	if res.Language != "und" {
		t.Fatalf("language = %q, want und", res.Language)
	}
}
