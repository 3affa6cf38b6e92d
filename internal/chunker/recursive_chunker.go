package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"pdfmind/internal/domain"
)

// RecursiveChunker splits on paragraph, line, sentence and word boundaries in
// that order until every piece fits chunkSize characters, keeping chunkOverlap
// characters of context between neighbours.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveChunker(chunkSize, chunkOverlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
	}
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	texts, err := c.splitter.SplitText(document.Content)
	if err != nil {
		return nil, err
	}
	kept := texts[:0]
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return newChunks(document, kept), nil
}
