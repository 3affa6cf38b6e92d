package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedReq struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func fakeEmbeddings(t *testing.T, failFirst int32, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if n <= failFirst {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		var req embedReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data := make([]map[string]any, 0, len(req.Input))
		for i := range req.Input {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{3, 4, float64(i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url + "/v1", Model: "BAAI/bge-small-en-v1.5", BatchSize: 2})
	require.NoError(t, err)
	c.baseDelay = time.Millisecond
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("PDFMIND_TEST_EMBED_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "PDFMIND_TEST_EMBED_KEY"})
	assert.Error(t, err)
}

func TestClient_PrepareBatchesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddings(t, 0, &calls)
	defer srv.Close()
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Prepare(ctx, []string{"a", "b", "c"}))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 3, c.Dimension())

	v, err := c.Embed(ctx, "a")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, int32(2), calls.Load(), "cached vector must not hit the server")

	_, err = c.Embed(ctx, "question not in corpus")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddings(t, 2, &calls)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	v, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddings(t, 100, &calls)
	defer srv.Close()
	c := newTestClient(t, srv.URL)
	c.maxRetries = 2

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryDelay(t *testing.T) {
	base := 200 * time.Millisecond
	assert.Equal(t, base, retryDelay(base, 0))
	assert.Equal(t, 800*time.Millisecond, retryDelay(base, 2))
	assert.Equal(t, 5*time.Second, retryDelay(base, 10))
}
