package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletionSendsNonStreamingPayload(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"  lol  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{URL: server.URL})
	text, err := client.Complete(context.Background(), ChatRequest{
		Model:       DefaultModel,
		Messages:    []Message{TextMessage("system", "sys"), TextMessage("user", "usr")},
		Temperature: 0.9,
		Stream:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "  lol  ", text)

	assert.Equal(t, DefaultModel, got["model"])
	assert.Equal(t, false, got["stream"])
	assert.InDelta(t, 0.9, got["temperature"], 1e-9)
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "usr", messages[1].(map[string]any)["content"])
}

func TestChatCompletionBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	_, err := NewClient(Options{URL: server.URL, APIKey: "secret"}).Complete(context.Background(), ChatRequest{})
	require.NoError(t, err)
}

func TestChatCompletionErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "non-200",
			status: http.StatusInternalServerError,
			body:   "model not loaded",
			checkFn: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
				assert.Contains(t, apiErr.Message, "model not loaded")
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   "{not json",
			checkFn: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "解析响应失败")
			},
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoChoices)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(Options{URL: server.URL}).Complete(context.Background(), ChatRequest{})
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestChatCompletionContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewClient(Options{URL: server.URL}).ChatCompletion(ctx, ChatRequest{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestImageMessageParts(t *testing.T) {
	msg := ImageMessage("user", "look at this", "data:image/png;base64,AAAA")

	var parts []ContentPart
	require.NoError(t, json.Unmarshal(msg.Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
	assert.Equal(t, "look at this", msg.Text())
}

func TestNewClientDefaults(t *testing.T) {
	assert.Equal(t, DefaultURL, NewClient(Options{}).URL())
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", NewClient(Options{URL: "http://localhost:11434/v1/chat/completions"}).URL())
}
