package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirqa/internal/domain"
)

const testKeyEnv = "DIRQA_TEST_OPENAI_KEY"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, serverURL string, timeout time.Duration) *Client {
	t.Helper()
	t.Setenv(testKeyEnv, "test-key")
	c, err := NewClient(Config{
		BaseURL:   serverURL,
		APIKeyEnv: testKeyEnv,
		Timeout:   timeout,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv(testKeyEnv, "")
	_, err := NewClient(Config{APIKeyEnv: testKeyEnv})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestGenerateSendsPromptPair(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeCompletion(w, "  The directive requires approved cabinets.\n")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 5*time.Second)
	text, err := c.Generate(context.Background(), "you are an expert", "answer this")
	require.NoError(t, err)

	assert.Equal(t, "The directive requires approved cabinets.", text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 1e-6)
	assert.Equal(t, 600, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "you are an expert", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "answer this", got.Messages[1].Content)
}

func TestGenerateServerErrorReturnsGenerationError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 5*time.Second)
	text, err := c.Generate(context.Background(), "system", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Empty(t, text)
	assert.Equal(t, 1, attempts)
}

func TestGenerateTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		writeCompletion(w, "too late")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 100*time.Millisecond)
	started := time.Now()
	text, err := c.Generate(context.Background(), "system", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Empty(t, text)
	assert.Less(t, time.Since(started), time.Second)
}

func TestGenerateRejectsEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   \n")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), "system", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestGenerateRejectsNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-test","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 5*time.Second)
	_, err := c.Generate(context.Background(), "system", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
