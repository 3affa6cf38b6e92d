package llm

import (
	"context"
	"iter"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float32
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float32) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Provider defines the contract for any streaming LLM backend.
type Provider interface {
	// Stream sends the conversation to the model and yields the reply as
	// text fragments in arrival order. A failure is yielded once as a
	// non-nil error and ends the sequence.
	Stream(ctx context.Context, history []Message, options ...Option) iter.Seq2[string, error]
}
