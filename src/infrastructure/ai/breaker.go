package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Breaker wraps a Provider with a circuit breaker so a failing AI backend is not hammered
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps p. Zero values in cfg fall back to 60s timeout and 5 minimum requests.
func NewBreaker(p Provider, cfg Config, logger *logrus.Logger) *Breaker {
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai-" + p.Name(),
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("サーキットブレーカーの状態が変化しました")
		},
		IsSuccessful: func(err error) bool {
			// 呼び出し側のキャンセルは障害として数えない
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{next: p, cb: cb}
}

func (b *Breaker) Name() string { return b.next.Name() }

func (b *Breaker) Available() bool { return b.next.Available() }

// State exposes the breaker state for health reporting
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func (b *Breaker) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, prompt, opts)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
