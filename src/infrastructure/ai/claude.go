package ai

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const defaultClaudeModel = "claude-3-5-haiku-latest"

// claude calls the Anthropic messages API
type claude struct {
	apiKey string
	model  string
	client *anthropic.Client
}

// NewClaude creates a Claude provider
func NewClaude(cfg Config) Provider {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &claude{
		apiKey: cfg.APIKey,
		model:  model,
		client: anthropic.NewClient(cfg.APIKey, opts...),
	}
}

func (c *claude) Name() string { return ProviderClaude }

func (c *claude) Available() bool { return c.apiKey != "" }

func (c *claude) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(prompt)},
			},
		},
		MaxTokens: opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("claude complete: %w", err)
	}

	var sb strings.Builder
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText {
			sb.WriteString(content.GetText())
		}
	}
	return sb.String(), nil
}
