// Package ai provides text generation backends used for memo summaries and tag suggestions.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Provider name constants.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Options controls a single generation call
type Options struct {
	MaxTokens   int
	Temperature float64
}

// SummaryOptions and TagOptions are the generation settings of each feature
var (
	SummaryOptions = Options{MaxTokens: 500, Temperature: 0.7}
	TagOptions     = Options{MaxTokens: 100, Temperature: 0.7}
)

// Provider generates text from a prompt
type Provider interface {
	// Generate returns the generated text. An empty string means the model produced nothing usable.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	// Available reports whether the provider is configured (API key present)
	Available() bool
	Name() string
}

// Config holds the provider selection
type Config struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the API endpoint (proxies and tests)
	BaseURL string

	BreakerTimeout     time.Duration
	BreakerMinRequests uint32
}

// New constructs the provider named in cfg, wrapped by a circuit breaker
func New(cfg Config, logger *logrus.Logger) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case ProviderGemini, "":
		p = NewGemini(cfg)
	case ProviderOpenAI:
		p = NewOpenAI(cfg)
	case ProviderClaude:
		p = NewClaude(cfg)
	default:
		return nil, fmt.Errorf("ai: unknown provider %q; valid providers: gemini, openai, claude", cfg.Provider)
	}
	return NewBreaker(p, cfg, logger), nil
}
