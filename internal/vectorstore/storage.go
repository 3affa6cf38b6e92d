package vectorstore

import (
	"context"

	"pdfmind/internal/domain"
)

// Storage persists vectors and supports similarity search.
// Each indexed document owns one Storage; Close releases it.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
	Close() error
}

// Factory creates the Storage for a new index.
type Factory func() Storage
