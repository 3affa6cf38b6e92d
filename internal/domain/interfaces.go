package domain

import (
	"context"
	"iter"
)

// Metadata keys attached to documents and inherited by their chunks.
const (
	MetaFileName  = "file_name"
	MetaPageLabel = "page_label"
)

// Document is one parsed unit of an uploaded file (a PDF page or a whole text file).
type Document struct {
	ID       string
	Path     string
	Content  string
	Metadata map[string]string
}

// Chunk is a bounded, overlapping part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Metadata   map[string]string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// DocumentLoader parses every file in a directory into document units.
type DocumentLoader interface {
	LoadDir(ctx context.Context, dir string) ([]Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Indexer builds a retrieval engine from parsed documents.
type Indexer interface {
	Build(ctx context.Context, docs []Document) (Engine, error)
}

// Engine is the opaque handle of an indexed document.
//
// Query answers a question as a lazy, finite sequence of text fragments.
// The sequence can be ranged over once; a failure is yielded as a non-nil
// error and ends the sequence.
type Engine interface {
	Query(ctx context.Context, question string) iter.Seq2[string, error]
	Summary() string
	Close() error
}
