package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, choices []openai.ChatCompletionChoice, check func(openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(req)
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:      "chatcmpl-1",
			Object:  "chat.completion",
			Model:   req.Model,
			Choices: choices,
		})
	}))
}

func TestOpenAIClientComplete(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := completionServer(t, []openai.ChatCompletionChoice{{
		Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: `{"questions":["a","b","c"]}`},
		FinishReason: openai.FinishReasonStop,
	}}, func(r openai.ChatCompletionRequest) { got = r })
	defer server.Close()

	c, err := NewOpenAIClient(Config{Provider: ProviderGroq, APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), CompletionRequest{Prompt: "hello", MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, `{"questions":["a","b","c"]}`, out)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestOpenAIClientNoChoices(t *testing.T) {
	server := completionServer(t, []openai.ChatCompletionChoice{}, nil)
	defer server.Close()

	c, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{Prompt: "x", MaxTokens: 10})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAIClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestOpenAIClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestNewOpenAIClientConfig(t *testing.T) {
	_, err := NewOpenAIClient(Config{Provider: ProviderGroq})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewOpenAIClient(Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewOpenAIClient(Config{Provider: "bard", APIKey: "k"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	c, err := NewOpenAIClient(Config{Provider: "Ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "llama3", c.Model())
}
