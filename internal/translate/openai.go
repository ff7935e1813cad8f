package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/fault"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const systemPrompt = "You are a professional translation assistant."

type openaiTranslator struct {
	client openai.Client
	cfg    config.TranslateConfig
}

func NewOpenAITranslator(cfg config.TranslateConfig) Translator {
	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiTranslator{client: openai.NewClient(requestOpts...), cfg: cfg}
}

func (t *openaiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fault.Permanent("translate", errors.New("nothing to translate"))
	}

	prompt := fmt.Sprintf(
		"Translate the following %s text into %s. Return only the translation, no explanations:\n\n%s",
		sourceLang, targetLang, text)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(t.cfg.Temperature),
	}
	if t.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(t.cfg.MaxTokens))
	}

	resp, err := t.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fault.FromOpenAI("translate", err)
	}
	if len(resp.Choices) == 0 {
		return "", fault.Permanent("translate", errors.New("translate response has no choices"))
	}
	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", fault.Permanent("translate", errors.New("translate response is empty"))
	}
	return translated, nil
}
