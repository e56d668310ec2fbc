package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.7
	DefaultTimeout     = 30 * time.Second

	groqBaseURL   = "https://api.groq.com/openai/v1"
	ollamaBaseURL = "http://localhost:11434/v1"
)

var (
	ErrMissingAPIKey   = errors.New("llm api key is required")
	ErrEmptyCompletion = errors.New("completion returned no choices")
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Completer sends a single prompt and returns the raw completion text.
// Implementations must not retry; Gateway owns retries.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

type CompletionRequest struct {
	Prompt    string
	MaxTokens int
}

// Config selects an OpenAI-compatible endpoint.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIClient talks to any OpenAI-compatible chat completions API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGroq
	}

	baseURL := cfg.BaseURL
	apiKey := cfg.APIKey
	switch provider {
	case ProviderGroq:
		if baseURL == "" {
			baseURL = groqBaseURL
		}
	case ProviderOpenAI:
	case ProviderOllama:
		if baseURL == "" {
			baseURL = ollamaBaseURL
		}
		if apiKey == "" {
			apiKey = "ollama"
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", provider, ErrMissingAPIKey)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete issues one chat completion bounded by the per-attempt timeout.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
