package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfmind/internal/domain"
)

func doc(content string) domain.Document {
	return domain.Document{
		ID:      "doc",
		Content: content,
		Metadata: map[string]string{
			domain.MetaFileName:  "doc.pdf",
			domain.MetaPageLabel: "3",
		},
	}
}

func TestSentenceChunker_Overlap(t *testing.T) {
	c := NewSentenceChunker(3, 1)
	chunks, err := c.Chunk(doc("One. Two. Three. Four. Five. Six. Seven."))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "One. Two. Three.", chunks[0].Text)
	assert.Equal(t, "Three. Four. Five.", chunks[1].Text)
	assert.Equal(t, "Five. Six. Seven.", chunks[2].Text)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "doc", ch.DocumentID)
		assert.Equal(t, "3", ch.Metadata[domain.MetaPageLabel])
	}
	assert.Equal(t, "doc:2", chunks[2].ChunkID)
}

func TestSentenceChunker_NoPunctuationAndEmpty(t *testing.T) {
	c := NewSentenceChunker(0, -1)

	chunks, err := c.Chunk(doc("  no sentence terminator here  "))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "no sentence terminator here", chunks[0].Text)

	chunks, err = c.Chunk(doc("   "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSentenceChunker_OverlapClamped(t *testing.T) {
	// overlap >= window would never advance
	c := NewSentenceChunker(2, 5)
	chunks, err := c.Chunk(doc("A. B. C. D."))
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestRecursiveChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewRecursiveChunker(512, 50)
	chunks, err := c.Chunk(doc("The title of this paper is Attention Is All You Need."))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "The title of this paper is Attention Is All You Need.", chunks[0].Text)
	assert.Equal(t, "doc.pdf", chunks[0].Metadata[domain.MetaFileName])
}

func TestRecursiveChunker_RespectsChunkSize(t *testing.T) {
	c := NewRecursiveChunker(512, 50)
	sentence := "Retrieval augmented generation conditions a model on retrieved passages. "
	text := strings.Repeat(sentence, 40)

	chunks, err := c.Chunk(doc(text))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 512, "chunk %d too long", i)
		assert.NotEmpty(t, ch.Text)
		assert.Equal(t, i, ch.Index)
	}
}

func TestRecursiveChunker_Empty(t *testing.T) {
	chunks, err := NewRecursiveChunker(512, 50).Chunk(doc(" \n "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunksDoNotShareMetadata(t *testing.T) {
	chunks, err := NewSentenceChunker(1, 0).Chunk(doc("A. B."))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	chunks[0].Metadata["extra"] = "x"
	_, ok := chunks[1].Metadata["extra"]
	assert.False(t, ok)
}
