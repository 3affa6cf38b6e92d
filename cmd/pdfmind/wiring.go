package main

import (
	"fmt"
	"os"
	"time"

	"pdfmind/internal/chunker"
	"pdfmind/internal/config"
	"pdfmind/internal/domain"
	"pdfmind/internal/embedding"
	"pdfmind/internal/embedding/openai"
	"pdfmind/internal/embedding/tfidf"
	"pdfmind/internal/llm"
	"pdfmind/internal/loader"
	"pdfmind/internal/logger"
	"pdfmind/internal/metrics"
	"pdfmind/internal/rag"
	"pdfmind/internal/session"
	"pdfmind/internal/summarizer"
	"pdfmind/internal/vectorstore"
	"pdfmind/internal/vectorstore/memory"
	"pdfmind/internal/vectorstore/qdrant"
)

func loadConfig(path string) (*config.AppConfig, error) {
	var cfg *config.AppConfig
	var err error
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newDeps assembles the collaborators shared by every session. A missing chat
// model key is not fatal: it is reported and questions are refused.
func newDeps(cfg *config.AppConfig, getenv func(string) string, log logger.ILogger, m *metrics.Metrics) (session.Deps, error) {
	if err := config.CheckCredentials(cfg, getenv); err != nil {
		log.Warn("main", "configuration problem", map[string]interface{}{"error": err.Error()})
	}
	llmErr := config.CheckLLMCredentials(cfg, getenv)

	var provider llm.Provider
	if llmErr == nil {
		switch cfg.LLM.Provider {
		case "groq", "":
			g, err := llm.NewGroq(llm.GroqConfig{
				APIKey:      getenv(cfg.LLM.APIKeyEnv),
				BaseURL:     cfg.LLM.BaseURL,
				Model:       cfg.LLM.Model,
				Temperature: cfg.LLM.Temperature,
				MaxTokens:   cfg.LLM.MaxTokens,
				Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
			})
			if err != nil {
				return session.Deps{}, err
			}
			provider = g
		default:
			return session.Deps{}, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
		}
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "recursive", "":
		ch = chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return session.Deps{}, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var newEmbedder embedding.Factory
	embeddingModel := "tfidf"
	switch cfg.Embedder.Type {
	case "tfidf", "":
		newEmbedder = func() (embedding.Embedder, error) { return tfidf.NewEmbedder(), nil }
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return session.Deps{}, fmt.Errorf("openai embedder config missing")
		}
		oc := openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		}
		embeddingModel = oc.Model
		newEmbedder = func() (embedding.Embedder, error) { return openai.NewClient(oc) }
	default:
		return session.Deps{}, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var newStore vectorstore.Factory
	switch cfg.VectorStore.Type {
	case "memory", "":
		newStore = func() vectorstore.Storage { return memory.NewStorage() }
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return session.Deps{}, fmt.Errorf("qdrant config missing")
		}
		qc := qdrant.Config{
			URL:              cfg.VectorStore.Qdrant.URL,
			APIKey:           cfg.VectorStore.Qdrant.APIKey,
			CollectionPrefix: cfg.VectorStore.Qdrant.CollectionPrefix,
			Timeout:          time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		}
		newStore = func() vectorstore.Storage { return qdrant.NewStorage(qc) }
	default:
		return session.Deps{}, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		return session.Deps{}, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	if cfg.Server.ScratchDir != "" {
		if err := os.MkdirAll(cfg.Server.ScratchDir, 0o700); err != nil {
			return session.Deps{}, fmt.Errorf("create scratch dir: %w", err)
		}
	}

	pipeline := rag.NewPipeline(ch, newEmbedder, newStore, sum, provider, rag.Options{
		TopK:                cfg.Retrieval.TopK,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		EmbeddingModel:      embeddingModel,
	}, log)
	return session.Deps{
		Loader:      loader.NewDirectoryLoader(),
		Indexer:     pipeline,
		ScratchRoot: cfg.Server.ScratchDir,
		ConfigErr:   llmErr,
		Logger:      log,
		Metrics:     m,
	}, nil
}
