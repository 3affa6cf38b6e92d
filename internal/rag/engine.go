package rag

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"pdfmind/internal/domain"
	"pdfmind/internal/embedding"
	"pdfmind/internal/llm"
	"pdfmind/internal/logger"
	"pdfmind/internal/vectorstore"
)

var (
	// ErrNoProvider is yielded when no language model was configured.
	ErrNoProvider = errors.New("no language model configured")
	// ErrEngineClosed is yielded by queries against a released engine.
	ErrEngineClosed = errors.New("query engine is closed")
	// ErrConsumed is yielded when an answer sequence is ranged over twice.
	ErrConsumed = errors.New("answer stream already consumed")
)

// Engine answers questions about one indexed document.
type Engine struct {
	id       string
	embedder embedding.Embedder
	store    vectorstore.Storage
	chunks   []domain.Chunk
	provider llm.Provider
	topK     int
	summary  string
	log      logger.ILogger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Summary is the extractive summary computed at index time.
func (e *Engine) Summary() string { return e.summary }

// Query retrieves the most relevant chunks and streams the model's answer.
// The returned sequence is single-use.
func (e *Engine) Query(ctx context.Context, question string) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrConsumed)
			return
		}
		if e.closed.Load() {
			yield("", ErrEngineClosed)
			return
		}
		if e.provider == nil {
			yield("", ErrNoProvider)
			return
		}
		results, err := e.Retrieve(ctx, question)
		if err != nil {
			yield("", fmt.Errorf("retrieve: %w", err))
			return
		}
		e.log.Debug(module, "context retrieved", map[string]interface{}{
			"engine_id": e.id,
			"chunks":    len(results),
		})
		for frag, err := range e.provider.Stream(ctx, buildMessages(question, results)) {
			if !yield(frag, err) || err != nil {
				return
			}
		}
	}
}

// Retrieve returns the top-K chunks for question, falling back to lexical
// overlap when the embedding carries no signal.
func (e *Engine) Retrieve(ctx context.Context, question string) ([]domain.SearchResult, error) {
	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	if isZero(vec) {
		return lexicalSearch(e.chunks, question, e.topK), nil
	}
	res, err := e.store.Search(ctx, vec, e.topK)
	if err != nil {
		return nil, err
	}
	for _, r := range res {
		if r.Score > 1e-9 {
			return res, nil
		}
	}
	return lexicalSearch(e.chunks, question, e.topK), nil
}

// Close releases the vector store. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.closeErr = e.store.Close()
		e.log.Debug(module, "engine released", map[string]interface{}{"engine_id": e.id})
	})
	return e.closeErr
}

var _ domain.Engine = (*Engine)(nil)
