package finalize

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"handy/settings"
)

// OpenAI rewrites text through any OpenAI-compatible chat completions API.
type OpenAI struct {
	opts []option.RequestOption
}

func NewOpenAI(opts ...option.RequestOption) *OpenAI {
	return &OpenAI{opts: opts}
}

func (o *OpenAI) Rewrite(ctx context.Context, provider settings.LLMProvider, apiKey, model, prompt string) (string, error) {
	// one request per rewrite; the caller falls back to the raw text
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	opts = append(opts, o.opts...)
	if provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(provider.BaseURL))
	}
	client := openai.NewClient(opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
