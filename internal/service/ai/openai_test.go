package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/emotalk/backend/internal/config"
	"github.com/zhouzirui/emotalk/backend/internal/model/chat"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestOpenAIProviderAgainstServer(t *testing.T) {
	var captured capturedRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, sonic.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "hello"}}]
		}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OpenAIBaseURL = srv.URL + "/"
	client := NewClient(cfg)

	reply, err := client.Complete(context.Background(), []chat.Message{
		chat.SystemMessage("preamble"),
		chat.UserMessage("hello"),
	}, "gpt-3.5-turbo", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-3.5-turbo", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "preamble", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestOpenAIProviderDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.OpenAIBaseURL = srv.URL + "/"
	client := NewClient(cfg)

	_, err := client.Complete(context.Background(), []chat.Message{chat.UserMessage("x")}, "gpt-4", "sk-test")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestArkProviderDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom", "type": "server_error"}}`)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ArkBaseURL = srv.URL
	client := NewClient(cfg)

	_, err := client.Complete(context.Background(), []chat.Message{chat.UserMessage("x")}, "doubao-seed-1-6", "ark-key")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIStreamUnsupported(t *testing.T) {
	chatModel, err := newOpenAIFactory(testConfig())(context.Background(), "gpt-4", "sk-test")
	require.NoError(t, err)

	_, err = chatModel.Stream(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

func TestProvidersRequireCredential(t *testing.T) {
	cfg := testConfig()
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderArk} {
		client := NewClient(cfg)
		modelID := "gpt-4"
		if provider == config.ProviderArk {
			modelID = "doubao-seed-1-6"
		}

		_, err := client.Complete(context.Background(), []chat.Message{chat.UserMessage("x")}, modelID, " ")
		require.ErrorIs(t, err, ErrUpstream, provider)
	}
}
