package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lemonvrct/vrct-core/internal/capture"
	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// openaiRecognizer sends captures to a whisper endpoint over the OpenAI
// audio transcription API.
type openaiRecognizer struct {
	client openai.Client
	cfg    config.TranscribeConfig
}

func NewOpenAIRecognizer(cfg config.TranscribeConfig) Recognizer {
	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiRecognizer{client: openai.NewClient(requestOpts...), cfg: cfg}
}

func (r *openaiRecognizer) Transcribe(ctx context.Context, buf *capture.Buffer) (Result, error) {
	file, err := os.CreateTemp(os.TempDir(), "vrct_stt_*.wav")
	if err != nil {
		return Result{}, fault.Transient("transcribe", fmt.Errorf("temp file: %w", err))
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := capture.EncodeWAV(file, buf); err != nil {
		return Result{}, fault.Permanent("transcribe", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return Result{}, fault.Transient("transcribe", fmt.Errorf("rewind wav: %w", err))
	}

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(r.cfg.Model),
		ResponseFormat: openai.AudioResponseFormatJSON,
	}
	if r.cfg.Language != "" {
		params.Language = param.NewOpt(r.cfg.Language)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Result{}, fault.FromOpenAI("transcribe", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Result{}, fault.Permanent("transcribe", errors.New("transcription response is empty"))
	}
	return Result{Text: text, Language: r.cfg.Language, Confidence: 1}, nil
}
