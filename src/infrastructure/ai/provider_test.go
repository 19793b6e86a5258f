package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestGemini_Generate(t *testing.T) {
	t.Run("正常な生成", func(t *testing.T) {
		var got geminiRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/gemini-2.0-flash-001:generateContent", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
			assert.Empty(t, r.URL.RawQuery)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"React, "},{"text":"학습"}]}}]}`))
		}))
		defer server.Close()

		p := NewGemini(Config{APIKey: "test-key", BaseURL: server.URL})
		text, err := p.Generate(context.Background(), "prompt", TagOptions)

		require.NoError(t, err)
		assert.Equal(t, "React, 학습", text)
		assert.Equal(t, 100, got.GenerationConfig.MaxOutputTokens)
		assert.Equal(t, 0.7, got.GenerationConfig.Temperature)
		assert.Equal(t, "prompt", got.Contents[0].Parts[0].Text)
	})

	t.Run("候補なしは空文字", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer server.Close()

		text, err := NewGemini(Config{APIKey: "k", BaseURL: server.URL}).Generate(context.Background(), "p", SummaryOptions)
		require.NoError(t, err)
		assert.Empty(t, text)
	})

	t.Run("APIエラー", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
		}))
		defer server.Close()

		_, err := NewGemini(Config{APIKey: "k", BaseURL: server.URL}).Generate(context.Background(), "p", SummaryOptions)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key not valid")
	})

	t.Run("接続エラーにキーを含めない", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		baseURL := server.URL
		server.Close()

		_, err := NewGemini(Config{APIKey: "secret-gemini-key", BaseURL: baseURL}).Generate(context.Background(), "p", TagOptions)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "secret-gemini-key")
	})
}

func TestOpenAI_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(500), body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"요약입니다"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := NewOpenAI(Config{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	text, err := p.Generate(context.Background(), "summarize", SummaryOptions)

	require.NoError(t, err)
	assert.Equal(t, "요약입니다", text)
}

func TestProvider_Available(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		expected bool
	}{
		{"gemini with key", NewGemini(Config{APIKey: "k"}), true},
		{"gemini without key", NewGemini(Config{}), false},
		{"openai without key", NewOpenAI(Config{}), false},
		{"claude with key", NewClaude(Config{APIKey: "k"}), true},
		{"claude without key", NewClaude(Config{}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.Available())
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("プロバイダー名で選択", func(t *testing.T) {
		for _, name := range []string{ProviderGemini, ProviderOpenAI, ProviderClaude} {
			p, err := New(Config{Provider: name, APIKey: "k"}, discardLogger())
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
			assert.IsType(t, &Breaker{}, p)
		}
	})

	t.Run("未知のプロバイダー", func(t *testing.T) {
		_, err := New(Config{Provider: "ollama"}, discardLogger())
		assert.Error(t, err)
	})
}

type failingProvider struct{ calls int }

func (f *failingProvider) Name() string    { return "failing" }
func (f *failingProvider) Available() bool { return true }
func (f *failingProvider) Generate(context.Context, string, Options) (string, error) {
	f.calls++
	return "", errors.New("upstream down")
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	inner := &failingProvider{}
	b := NewBreaker(inner, Config{BreakerMinRequests: 3}, discardLogger())

	for i := 0; i < 3; i++ {
		_, err := b.Generate(context.Background(), "p", TagOptions)
		assert.EqualError(t, err, "upstream down")
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Generate(context.Background(), "p", TagOptions)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	// オープン中は下位プロバイダーを呼ばない
	assert.Equal(t, 3, inner.calls)
}

// blockingProvider waits for the caller to give up and reports the wrapped cancellation
type blockingProvider struct{}

func (blockingProvider) Name() string    { return "blocking" }
func (blockingProvider) Available() bool { return true }
func (blockingProvider) Generate(ctx context.Context, _ string, _ Options) (string, error) {
	<-ctx.Done()
	return "", fmt.Errorf("blocking: %w", ctx.Err())
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	b := NewBreaker(blockingProvider{}, Config{}, discardLogger())

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := b.Generate(ctx, "p", TagOptions)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
