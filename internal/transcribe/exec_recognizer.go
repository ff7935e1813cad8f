package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/lemonvrct/vrct-core/internal/capture"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
	shellwords "github.com/mattn/go-shellwords"
)

// execRecognizer shells out to a local whisper-style CLI. The command gets
// a temp WAV path and prints a JSON result on stdout.
type execRecognizer struct {
	cmd []string
	cfg config.TranscribeConfig
	mu  sync.Mutex
}

type execResult struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

func NewExecRecognizer(cfg config.TranscribeConfig) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse transcribe command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("transcribe command is empty")
	}
	return &execRecognizer{cmd: args, cfg: cfg}, nil
}

func (r *execRecognizer) Transcribe(ctx context.Context, buf *capture.Buffer) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.CreateTemp(os.TempDir(), "vrct_stt_*.wav")
	if err != nil {
		return Result{}, fault.Transient("transcribe", fmt.Errorf("temp file: %w", err))
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := capture.EncodeWAV(file, buf); err != nil {
		return Result{}, fault.Permanent("transcribe", err)
	}

	args := append([]string{}, r.cmd...)
	base := args[0]
	cmdArgs := args[1:]
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if r.cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", r.cfg.ModelPath)
	}
	if r.cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", r.cfg.Language)
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		runErr := fmt.Errorf("transcribe command failed: %w: %s", err, stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fault.Transient("transcribe", runErr)
		}
		return Result{}, fault.Permanent("transcribe", runErr)
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Result{}, fault.Permanent("transcribe", fmt.Errorf("decode transcribe response: %w", err))
	}
	return Result{Text: resp.Text, Language: resp.Language, Confidence: resp.Confidence}, nil
}
