package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Skufu/symptom-checker/internal/metrics"
)

const DefaultBaseDelay = time.Second

// Gateway wraps a Completer with exponential backoff retries.
type Gateway struct {
	client    Completer
	baseDelay time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type GatewayOption func(*Gateway)

// WithBaseDelay sets the first backoff interval. Later waits double it.
func WithBaseDelay(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.baseDelay = d
		}
	}
}

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func NewGateway(client Completer, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:    client,
		baseDelay: DefaultBaseDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete sends prompt and returns the raw completion text. On any error it
// retries up to retries more times, waiting baseDelay, 2*baseDelay, 4*baseDelay
// and so on between attempts. The last error is returned when all attempts fail.
// Cancelling ctx interrupts a pending wait.
func (g *Gateway) Complete(ctx context.Context, prompt string, maxTokens, retries int) (string, error) {
	if retries < 0 {
		retries = 0
	}

	var (
		text    string
		attempt int
	)
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(g.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		start := time.Now()
		out, err := g.client.Complete(ctx, CompletionRequest{Prompt: prompt, MaxTokens: maxTokens})
		g.metrics.ObserveCompletion(g.client.Model(), time.Since(start), err)
		if err != nil {
			g.logger.WarnContext(ctx, "completion attempt failed",
				"attempt", attempt,
				"max_attempts", retries+1,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
