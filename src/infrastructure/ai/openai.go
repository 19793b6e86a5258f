package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openaiProvider calls the OpenAI chat completion API
type openaiProvider struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAI creates an OpenAI provider
func NewOpenAI(cfg Config) Provider {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiProvider{
		apiKey: cfg.APIKey,
		model:  model,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (o *openaiProvider) Name() string { return ProviderOpenAI }

func (o *openaiProvider) Available() bool { return o.apiKey != "" }

func (o *openaiProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
