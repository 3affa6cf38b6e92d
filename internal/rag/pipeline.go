package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdfmind/internal/domain"
	"pdfmind/internal/embedding"
	"pdfmind/internal/llm"
	"pdfmind/internal/logger"
	"pdfmind/internal/vectorstore"
)

const module = "rag"

// ErrNothingToIndex is returned when the documents contain no indexable text.
var ErrNothingToIndex = errors.New("document contains no indexable text")

// Options tunes retrieval and the post-index summary.
type Options struct {
	TopK                int
	SummaryMaxSentences int
	// EmbeddingModel is recorded on every engine for diagnostics.
	EmbeddingModel string
}

// Pipeline is the Indexer: it turns parsed documents into a query-ready Engine.
// It holds no per-document state and is shared by all sessions.
type Pipeline struct {
	chunker     domain.Chunker
	newEmbedder embedding.Factory
	newStore    vectorstore.Factory
	summarizer  domain.Summarizer
	provider    llm.Provider
	opts        Options
	log         logger.ILogger
}

// NewPipeline assembles an indexer. summarizer and provider may be nil: the
// summary is then empty and every query fails with ErrNoProvider.
func NewPipeline(chunker domain.Chunker, newEmbedder embedding.Factory, newStore vectorstore.Factory, summarizer domain.Summarizer, provider llm.Provider, opts Options, log logger.ILogger) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		chunker:     chunker,
		newEmbedder: newEmbedder,
		newStore:    newStore,
		summarizer:  summarizer,
		provider:    provider,
		opts:        opts,
		log:         log,
	}
}

// Build chunks, embeds and stores docs. On failure every resource created
// along the way is released.
func (p *Pipeline) Build(ctx context.Context, docs []domain.Document) (domain.Engine, error) {
	start := time.Now()
	if len(docs) == 0 {
		return nil, ErrNothingToIndex
	}
	var chunks []domain.Chunk
	var texts []string
	var all strings.Builder
	for _, d := range docs {
		cs, err := p.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.ID, err)
		}
		for _, c := range cs {
			chunks = append(chunks, c)
			texts = append(texts, c.Text)
		}
		all.WriteString(d.Content)
		all.WriteString("\n")
	}
	if len(chunks) == 0 {
		return nil, ErrNothingToIndex
	}

	emb, err := p.newEmbedder()
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	if err := emb.Prepare(ctx, texts); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := emb.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", chunks[i].ChunkID, err)
		}
		vectors[i] = vec
	}

	dim := emb.Dimension()
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("embed chunk %s: got %d dimensions, embedder reports %d", chunks[i].ChunkID, len(vec), dim)
		}
	}

	store := p.newStore()
	if err := store.Init(ctx, dim); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("store vectors: %w", err)
	}

	var summary string
	if p.summarizer != nil {
		if summary, err = p.summarizer.Summarize(all.String(), p.opts.SummaryMaxSentences); err != nil {
			p.log.Warn(module, "summary failed", map[string]interface{}{"error": err.Error()})
			summary = ""
		}
	}

	e := &Engine{
		id:       uuid.NewString(),
		embedder: emb,
		store:    store,
		chunks:   chunks,
		provider: p.provider,
		topK:     p.opts.TopK,
		summary:  summary,
		log:      p.log,
	}
	p.log.Info(module, "document indexed", map[string]interface{}{
		"engine_id":       e.id,
		"documents":       len(docs),
		"chunks":          len(chunks),
		"embedder":        emb.Name(),
		"embedding_model": p.opts.EmbeddingModel,
		"dimension":       dim,
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
	return e, nil
}

var _ domain.Indexer = (*Pipeline)(nil)
