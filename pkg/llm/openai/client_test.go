package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moomina/companion-go/pkg/llm"
	"github.com/moomina/companion-go/pkg/llm/openai"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, req chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, baseURL string) *openai.Client {
	t.Helper()
	client, err := openai.NewClient(&openai.Config{
		APIKey:  "test-key",
		Model:   "llama-3.3-70b-versatile",
		BaseURL: baseURL,
	})
	require.NoError(t, err)
	return client
}

func TestGenerateWithMessages(t *testing.T) {
	var got chatRequest
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		got = req
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "llama-3.1-8b-instant",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hii jaan"}, "finish_reason": "stop"}]
		}`))
	})

	client := newClient(t, srv.URL)
	reply, err := client.GenerateWithMessages(context.Background(), []llm.Message{
		{Role: "system", Content: "be sweet"},
		{Role: "user", Content: "hey"},
	}, llm.WithModel("llama-3.1-8b-instant"), llm.WithTemperature(0.92), llm.WithMaxTokens(120))

	require.NoError(t, err)
	assert.Equal(t, "hii jaan", reply)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.InDelta(t, 0.92, got.Temperature, 1e-6)
	assert.Equal(t, 120, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestGenerateWithImage(t *testing.T) {
	var got chatRequest
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		got = req
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "cute!!"}}]}`))
	})

	reply, err := newClient(t, srv.URL).GenerateWithMessages(context.Background(), []llm.Message{
		{Role: "system", Content: "react to the photo"},
		{Role: "user", Content: "my new puppy", ImageURL: "data:image/jpeg;base64,AAAA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cute!!", reply)
	require.Len(t, got.Messages, 2)

	var system string
	require.NoError(t, json.Unmarshal(got.Messages[0].Content, &system))
	assert.Equal(t, "react to the photo", system)

	var parts []contentPart
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "my new puppy", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", parts[1].ImageURL.URL)
}

func TestGenerateUsesConfiguredModel(t *testing.T) {
	var model string
	srv := newServer(t, func(w http.ResponseWriter, req chatRequest) {
		model = req.Model
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}}]}`))
	})

	reply, err := newClient(t, srv.URL).Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, "llama-3.3-70b-versatile", model)
}

func TestGenerateRateLimited(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ chatRequest) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "tokens", "code": "rate_limit_exceeded"}}`))
	})

	_, err := newClient(t, srv.URL).Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, llm.IsRateLimited(err))
}

func TestGenerateServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ chatRequest) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	})

	_, err := newClient(t, srv.URL).Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, llm.IsRateLimited(err))
}

func TestGenerateNoChoices(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ chatRequest) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := newClient(t, srv.URL).Generate(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNewClientRequiresModel(t *testing.T) {
	_, err := openai.NewClient(&openai.Config{APIKey: "k"})
	assert.Error(t, err)
}
