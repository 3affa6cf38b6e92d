package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"pdfmind/internal/embedding"
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder
// interface. It works against OpenAI, Ollama's /v1 endpoint or a text
// embeddings inference server hosting BAAI/bge-small-en-v1.5.
type Client struct {
	api        *goopenai.Client
	model      string
	batchSize  int
	dimension  int
	maxRetries int
	baseDelay  time.Duration
	cache      map[string][]float64
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewClient creates a new embeddings client using the provided configuration.
// An empty APIKeyEnv means the endpoint needs no key.
func NewClient(cfg Config) (*Client, error) {
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	oc := goopenai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{
		api:        goopenai.NewClientWithConfig(oc),
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: 5,
		baseDelay:  200 * time.Millisecond,
		cache:      make(map[string][]float64),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare embeds the corpus in batches and keeps the vectors so the
// per-chunk Embed calls that follow are served locally.
func (c *Client) Prepare(ctx context.Context, corpus []string) error {
	for start := 0; start < len(corpus); start += c.batchSize {
		end := min(start+c.batchSize, len(corpus))
		batch := corpus[start:end]
		vectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			return err
		}
		for i, v := range vectors {
			c.cache[batch[i]] = v
		}
	}
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
// It is known after the first successful request.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache[text]; ok {
		return v, nil
	}
	vectors, err := c.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, input []string) ([][]float64, error) {
	req := goopenai.EmbeddingRequest{Input: input, Model: goopenai.EmbeddingModel(c.model)}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(c.baseDelay, attempt-1)):
			}
		}
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return nil, fmt.Errorf("embeddings request failed: %w", err)
		}
		if len(resp.Data) != len(input) {
			return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(input))
		}
		out := make([][]float64, len(input))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(out) || len(d.Embedding) == 0 {
				return nil, errors.New("embeddings: malformed vector in response")
			}
			v := make([]float64, len(d.Embedding))
			for i, x := range d.Embedding {
				v[i] = float64(x)
			}
			out[d.Index] = embedding.Normalize(v)
		}
		if c.dimension == 0 {
			c.dimension = len(out[0])
		}
		return out, nil
	}
	return nil, fmt.Errorf("embeddings request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// retryable reports rate limiting and server side failures.
func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

var _ embedding.Embedder = (*Client)(nil)
