package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqConfig configures the Groq client.
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Groq streams chat completions from Groq's OpenAI-compatible endpoint.
type Groq struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewGroq(cfg GroqConfig) (*Groq, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq: api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if cfg.Timeout > 0 {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Groq{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (g *Groq) Stream(ctx context.Context, history []Message, options ...Option) iter.Seq2[string, error] {
	opts := Options{Temperature: g.temperature, MaxTokens: g.maxTokens, Model: g.model}
	for _, o := range options {
		o(&opts)
	}
	req := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(history)),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      true,
	}
	for _, m := range history {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	return func(yield func(string, error) bool) {
		stream, err := g.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", fmt.Errorf("groq: %w", err))
			return
		}
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("groq: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}

var _ Provider = (*Groq)(nil)
