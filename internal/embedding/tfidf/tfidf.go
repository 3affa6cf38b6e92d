// Package tfidf is a local embedder that needs no model service. The
// vocabulary is learned from one document's chunks, so a fresh Embedder is
// prepared for every index.
package tfidf

import (
	"context"
	"errors"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"

	"pdfmind/internal/embedding"
)

var (
	errNotPrepared = errors.New("tfidf embedder not prepared")
	errEmptyCorpus = errors.New("tfidf: empty corpus")
	errNoTerms     = errors.New("tfidf: corpus has no indexable terms")
)

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = func() map[string]bool {
	m := map[string]bool{}
	for _, w := range strings.Fields(`
		a an the and or but if then else for to of in on at by with as
		is are was were be been being it this that these those from up down
		over under again further than so such into about between through
		during before after above below out off own same too very can will
		just don should now what which who whom how why when where does do did`) {
		m[w] = true
	}
	return m
}()

// Embedder maps text onto a smoothed TF-IDF vector over the prepared
// vocabulary. Vectors are L2-normalized.
type Embedder struct {
	index map[string]int
	idf   []float64
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// Prepare learns the vocabulary and document frequencies of corpus.
func (e *Embedder) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errEmptyCorpus
	}
	df := map[string]int{}
	for _, text := range corpus {
		for term := range termCounts(text) {
			df[term]++
		}
	}
	if len(df) == 0 {
		return errNoTerms
	}

	terms := slices.Sorted(maps.Keys(df))
	e.index = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	docs := float64(len(corpus))
	for i, term := range terms {
		e.index[term] = i
		e.idf[i] = 1 + math.Log((1+docs)/(1+float64(df[term])))
	}
	return nil
}

func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed returns the zero vector for text with no known terms.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.index == nil {
		return nil, errNotPrepared
	}
	vec := make([]float64, len(e.idf))
	known := 0
	for term, n := range termCounts(text) {
		if i, ok := e.index[term]; ok {
			vec[i] = float64(n)
			known += n
		}
	}
	if known == 0 {
		return vec, nil
	}
	for i, n := range vec {
		if n > 0 {
			vec[i] = n / float64(known) * e.idf[i]
		}
	}
	return embedding.Normalize(vec), nil
}

func termCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if !stopwords[w] {
			counts[w]++
		}
	}
	return counts
}

var _ embedding.Embedder = (*Embedder)(nil)
