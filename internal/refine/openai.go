package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const systemPrompt = "You are a text correction assistant specialized in fixing speech recognition errors."

const promptTemplate = `Correct the following speech recognition result. Fix likely
recognition errors, grammar mistakes and disfluencies so it reads naturally.
The context is in-game chat in VRChat. If the text is already fine, return it
unchanged. Requirements:
1. Preserve the original meaning.
2. Fix grammar errors and misrecognized words.
3. Return only the corrected text, no explanations.

Text to correct: %s`

// minRefineRunes: anything shorter passes through untouched, correction
// on one or two characters only invents content.
const minRefineRunes = 2

type openaiRefiner struct {
	client openai.Client
	cfg    config.RefineConfig
}

func NewOpenAIRefiner(cfg config.RefineConfig) Refiner {
	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiRefiner{client: openai.NewClient(requestOpts...), cfg: cfg}
}

func (r *openaiRefiner) Refine(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minRefineRunes {
		return text, nil
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf(promptTemplate, trimmed)),
		},
		Temperature: openai.Float(r.cfg.Temperature),
	}
	if r.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(r.cfg.MaxTokens))
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fault.FromOpenAI("refine", err)
	}
	if len(resp.Choices) == 0 {
		return "", fault.Permanent("refine", errors.New("refine response has no choices"))
	}
	corrected := strings.TrimSpace(resp.Choices[0].Message.Content)
	if corrected == "" {
		return text, nil
	}
	return corrected, nil
}
