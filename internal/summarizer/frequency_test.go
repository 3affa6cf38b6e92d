package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_PicksFrequentSentencesInOrder(t *testing.T) {
	text := "Page 1. " +
		"Vector search finds similar passages quickly. " +
		"The weather in the valley was pleasant that spring. " +
		"Vector search ranks passages by cosine similarity. " +
		"Passages found by vector search ground the answer."

	got, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)

	assert.NotContains(t, got, "Page 1.")
	assert.NotContains(t, got, "weather")
	first := strings.Index(got, "Vector search finds")
	second := strings.Index(got, "Vector search ranks")
	third := strings.Index(got, "Passages found")
	assert.True(t, first >= 0 || second >= 0 || third >= 0)
	assert.Equal(t, 2, strings.Count(got, "."))
	if first >= 0 && second >= 0 {
		assert.Less(t, first, second, "original order must be kept")
	}
}

func TestSummarize_NoSentences(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  just a heading  ", 3)
	require.NoError(t, err)
	assert.Equal(t, "just a heading", got)

	long := strings.Repeat("x", 400)
	got, err = NewFrequencySummarizer().Summarize(long, 3)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Len(t, []rune(got), 281)
}
