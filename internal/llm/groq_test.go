package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatReq struct {
	Model       string  `json:"model"`
	Stream      bool    `json:"stream"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func streamingServer(t *testing.T, fragments []string, got *chatReq) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer gsk_test" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
			return
		}
		if got != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i, f := range fragments {
			chunk := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   DefaultGroqModel,
				"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": f}}},
			}
			if i == 0 {
				chunk["choices"] = []map[string]any{{"index": 0, "delta": map[string]any{"role": "assistant", "content": f}}}
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
}

func collect(t *testing.T, seq func(func(string, error) bool)) ([]string, error) {
	t.Helper()
	var out []string
	for frag, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, frag)
	}
	return out, nil
}

func TestGroq_StreamsFragments(t *testing.T) {
	var req chatReq
	srv := streamingServer(t, []string{"The title ", "is ", "Attention."}, &req)
	defer srv.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1", Temperature: 0.1})
	require.NoError(t, err)

	frags, err := collect(t, g.Stream(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "What is the title?"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"The title ", "is ", "Attention."}, frags)

	assert.Equal(t, DefaultGroqModel, req.Model)
	assert.True(t, req.Stream)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[1].Role)
}

func TestGroq_ModelOverride(t *testing.T) {
	var req chatReq
	srv := streamingServer(t, []string{"ok"}, &req)
	defer srv.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1"})
	require.NoError(t, err)
	_, err = collect(t, g.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}, WithModel("llama-3.1-8b-instant")))
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", req.Model)
}

func TestGroq_UpstreamErrorIsYielded(t *testing.T) {
	srv := streamingServer(t, nil, nil)
	defer srv.Close()

	g, err := NewGroq(GroqConfig{APIKey: "wrong", BaseURL: srv.URL + "/openai/v1"})
	require.NoError(t, err)

	frags, err := collect(t, g.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}))
	require.Error(t, err)
	assert.Empty(t, frags)
	assert.True(t, strings.HasPrefix(err.Error(), "groq: "))
	assert.Contains(t, err.Error(), "Invalid API Key")
}

func TestGroq_StopEarly(t *testing.T) {
	srv := streamingServer(t, []string{"a", "b", "c"}, nil)
	defer srv.Close()

	g, err := NewGroq(GroqConfig{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1"})
	require.NoError(t, err)
	var seen []string
	for frag, err := range g.Stream(context.Background(), []Message{{Role: "user", Content: "hi"}}) {
		require.NoError(t, err)
		seen = append(seen, frag)
		break
	}
	assert.Equal(t, []string{"a"}, seen)
}

func TestNewGroq_RequiresKey(t *testing.T) {
	_, err := NewGroq(GroqConfig{})
	assert.Error(t, err)
}
