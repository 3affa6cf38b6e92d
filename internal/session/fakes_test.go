package session

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"pdfmind/internal/domain"
)

var errCorrupt = errors.New("malformed PDF: xref table not found")

// fakeLoader treats the single file in dir as a three-page document unless
// its content is "corrupt".
type fakeLoader struct {
	mu    sync.Mutex
	dirs  []string
	files []string
}

func (l *fakeLoader) LoadDir(_ context.Context, dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.dirs = append(l.dirs, dir)
	for _, e := range entries {
		l.files = append(l.files, e.Name())
	}
	l.mu.Unlock()
	if len(entries) != 1 {
		return nil, errors.New("expected exactly one file")
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		return nil, err
	}
	if string(data) == "corrupt" {
		return nil, errCorrupt
	}
	if string(data) == "blank" {
		return nil, nil
	}
	docs := make([]domain.Document, 3)
	for i := range docs {
		docs[i] = domain.Document{ID: entries[0].Name(), Content: string(data)}
	}
	return docs, nil
}

type fakeEngine struct {
	fragments []string
	err       error
	// gate, when set, is awaited before every fragment after the first.
	gate    chan struct{}
	queries atomic.Int32
	closed  atomic.Bool
	live    *atomic.Int32
}

func (e *fakeEngine) Query(ctx context.Context, _ string) iter.Seq2[string, error] {
	e.queries.Add(1)
	return func(yield func(string, error) bool) {
		for i, f := range e.fragments {
			if i > 0 && e.gate != nil {
				select {
				case <-e.gate:
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				}
			}
			if !yield(f, nil) {
				return
			}
		}
		if e.err != nil {
			yield("", e.err)
		}
	}
}

func (e *fakeEngine) Summary() string { return "A three page document." }

func (e *fakeEngine) Close() error {
	if !e.closed.Swap(true) {
		e.live.Add(-1)
	}
	return nil
}

// fakeIndexer builds fakeEngines and tracks how many are live at once.
type fakeIndexer struct {
	fragments []string
	queryErr  error
	gate      chan struct{}
	buildErr  error

	mu      sync.Mutex
	engines []*fakeEngine
	live    atomic.Int32
	maxLive atomic.Int32
}

func (x *fakeIndexer) Build(_ context.Context, _ []domain.Document) (domain.Engine, error) {
	if x.buildErr != nil {
		return nil, x.buildErr
	}
	e := &fakeEngine{fragments: x.fragments, err: x.queryErr, gate: x.gate, live: &x.live}
	n := x.live.Add(1)
	if n > x.maxLive.Load() {
		x.maxLive.Store(n)
	}
	x.mu.Lock()
	x.engines = append(x.engines, e)
	x.mu.Unlock()
	return e, nil
}

func (x *fakeIndexer) last() *fakeEngine {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.engines) == 0 {
		return nil
	}
	return x.engines[len(x.engines)-1]
}

func (x *fakeIndexer) totalQueries() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, e := range x.engines {
		n += int(e.queries.Load())
	}
	return n
}

// valueEngine is held by value and cannot be compared with ==.
type valueEngine struct {
	fragments []string
}

func (e valueEngine) Query(_ context.Context, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range e.fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}

func (valueEngine) Summary() string { return "" }
func (valueEngine) Close() error    { return nil }

type valueIndexer struct {
	fragments []string
}

func (x valueIndexer) Build(_ context.Context, _ []domain.Document) (domain.Engine, error) {
	return valueEngine{fragments: x.fragments}, nil
}
