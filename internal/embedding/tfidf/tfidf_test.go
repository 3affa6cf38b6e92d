package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestEmbedder_RequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "anything")
	assert.Error(t, err)
}

func TestEmbedder_PrepareErrors(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, NewEmbedder().Prepare(ctx, nil))
	assert.Error(t, NewEmbedder().Prepare(ctx, []string{"the and of"}))
}

func TestEmbedder_SimilarityRanking(t *testing.T) {
	ctx := context.Background()
	corpus := []string{
		"Transformers rely on self attention instead of recurrence.",
		"The recipe needs flour, sugar and butter.",
		"Attention heads learn different relations between tokens.",
	}
	e := NewEmbedder()
	require.NoError(t, e.Prepare(ctx, corpus))
	assert.Greater(t, e.Dimension(), 0)
	assert.Equal(t, "tfidf", e.Name())

	q, err := e.Embed(ctx, "How does attention work?")
	require.NoError(t, err)
	assert.Len(t, q, e.Dimension())

	var scores []float64
	for _, c := range corpus {
		v, err := e.Embed(ctx, c)
		require.NoError(t, err)
		norm := math.Sqrt(dot(v, v))
		assert.InDelta(t, 1.0, norm, 1e-9)
		scores = append(scores, dot(q, v))
	}
	assert.Greater(t, scores[0], scores[1])
	assert.Greater(t, scores[2], scores[1])
	assert.Zero(t, scores[1])
}

func TestEmbedder_UnknownTermsGiveZeroVector(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	require.NoError(t, e.Prepare(ctx, []string{"alpha beta gamma"}))
	v, err := e.Embed(ctx, "zeta")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}
