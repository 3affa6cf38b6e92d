package chunker

import (
	"maps"
	"strconv"

	"pdfmind/internal/domain"
)

// newChunks numbers texts in order and copies the parent's metadata onto each.
func newChunks(document domain.Document, texts []string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(texts))
	for idx, text := range texts {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Text:       text,
			Index:      idx,
			Metadata:   maps.Clone(document.Metadata),
		})
	}
	return chunks
}
