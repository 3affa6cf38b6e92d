// Package session implements the document-session lifecycle: one uploaded
// document, its retrieval engine and the chat transcript of one user.
package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pdfmind/internal/domain"
	"pdfmind/internal/logger"
	"pdfmind/internal/metrics"
)

const module = "session"

// State is the lifecycle state of a Session.
type State int

const (
	StateEmpty State = iota
	StateIndexing
	StateReady
	StateAnswering
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateIndexing:
		return "INDEXING"
	case StateReady:
		return "READY"
	case StateAnswering:
		return "ANSWERING"
	}
	return "UNKNOWN"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Stage names a step of an upload. It is reported to progress callbacks and
// recorded on DocumentLoadError.
type Stage string

const (
	StageWorkspace Stage = "workspace"
	StageReading   Stage = "reading"
	StageEmbedding Stage = "embedding"
	StageReady     Stage = "ready"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Incomplete marks an assistant answer cut
// short by an error or cancellation; Error carries the reason.
type Message struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Incomplete bool      `json:"incomplete,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Snapshot is a copy of the session's visible state.
type Snapshot struct {
	ID            string    `json:"id"`
	State         State     `json:"state"`
	Document      string    `json:"document,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Transcript    []Message `json:"transcript"`
	ConfigWarning string    `json:"config_warning,omitempty"`
}

// Deps are the collaborators shared read-only by every session.
type Deps struct {
	Loader  domain.DocumentLoader
	Indexer domain.Indexer
	// ScratchRoot is the parent of per-upload scratch directories;
	// empty means os.TempDir().
	ScratchRoot string
	// ConfigErr is the credential problem found at startup, if any.
	ConfigErr error
	Logger    logger.ILogger
	Metrics   *metrics.Metrics
}

type UploadOption func(*uploadOptions)

type uploadOptions struct {
	progress func(Stage)
}

// WithProgress reports each upload stage to fn as it starts.
func WithProgress(fn func(Stage)) UploadOption {
	return func(o *uploadOptions) { o.progress = fn }
}

// Session owns the transcript and the engine of one user.
type Session struct {
	id   string
	deps Deps
	log  logger.ILogger

	uploadMu sync.Mutex

	mu         sync.Mutex
	state      State
	engine     domain.Engine
	gen        uint64 // bumped whenever engine is replaced or dropped
	document   string
	summary    string
	transcript []Message
}

func New(id string, deps Deps) *Session {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{id: id, deps: deps, log: log}
}

func (s *Session) ID() string { return s.id }

// Upload indexes a new document, replacing the current one. The file is
// written to a fresh scratch directory that is removed before Upload returns.
// Any failure leaves the session EMPTY and is returned as *DocumentLoadError.
func (s *Session) Upload(ctx context.Context, fileName string, data []byte, opts ...UploadOption) error {
	o := uploadOptions{progress: func(Stage) {}}
	for _, opt := range opts {
		opt(&o)
	}
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	start := time.Now()
	name := cleanFileName(fileName)
	s.Reset()

	s.mu.Lock()
	s.state = StateIndexing
	s.document = name
	s.mu.Unlock()

	engine, err := s.index(ctx, name, data, o.progress)

	s.mu.Lock()
	if err != nil {
		s.state = StateEmpty
		s.document = ""
		s.mu.Unlock()
		s.deps.Metrics.ObserveUpload(metrics.StatusError, time.Since(start))
		s.log.Error(module, "upload failed", map[string]interface{}{
			"session_id": s.id,
			"file_name":  name,
			"error":      err.Error(),
		})
		return err
	}
	s.engine = engine
	s.gen++
	s.summary = engine.Summary()
	s.state = StateReady
	s.mu.Unlock()

	s.deps.Metrics.ObserveUpload(metrics.StatusSuccess, time.Since(start))
	s.deps.Metrics.DocumentLoaded()
	s.log.Info(module, "document ready", map[string]interface{}{
		"session_id": s.id,
		"file_name":  name,
		"bytes":      len(data),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	o.progress(StageReady)
	return nil
}

func (s *Session) index(ctx context.Context, name string, data []byte, progress func(Stage)) (domain.Engine, error) {
	fail := func(stage Stage, err error) error {
		return &DocumentLoadError{Stage: stage, FileName: name, Err: err}
	}
	if len(data) == 0 {
		return nil, fail(StageWorkspace, ErrEmptyFile)
	}

	progress(StageWorkspace)
	dir, err := os.MkdirTemp(s.deps.ScratchRoot, "upload-*")
	if err != nil {
		return nil, fail(StageWorkspace, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn(module, "scratch cleanup failed", map[string]interface{}{"dir": dir, "error": err.Error()})
		}
	}()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
		return nil, fail(StageWorkspace, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fail(StageReading, err)
	}
	progress(StageReading)
	docs, err := s.deps.Loader.LoadDir(ctx, dir)
	if err != nil {
		return nil, fail(StageReading, err)
	}
	if len(docs) == 0 {
		return nil, fail(StageReading, ErrNoContent)
	}

	if err := ctx.Err(); err != nil {
		return nil, fail(StageEmbedding, err)
	}
	progress(StageEmbedding)
	engine, err := s.deps.Indexer.Build(ctx, docs)
	if err != nil {
		return nil, fail(StageEmbedding, err)
	}
	if err := ctx.Err(); err != nil {
		_ = engine.Close()
		return nil, fail(StageEmbedding, err)
	}
	return engine, nil
}

// Ask answers question against the current document. Each fragment is passed
// to onFragment as it arrives. The returned Message is the assistant entry
// appended to the transcript; on failure it holds the partial answer and the
// error is an *AnswerError.
func (s *Session) Ask(ctx context.Context, question string, onFragment func(string)) (Message, error) {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		s.deps.Metrics.ObserveQuestion(metrics.StatusNotReady, 0)
		return Message{}, &NotReadyError{State: state}
	}
	if s.deps.ConfigErr != nil {
		s.mu.Unlock()
		s.deps.Metrics.ObserveQuestion(metrics.StatusConfig, 0)
		return Message{}, &ConfigurationError{Err: s.deps.ConfigErr}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		s.mu.Unlock()
		return Message{}, ErrEmptyQuestion
	}
	engine, gen := s.engine, s.gen
	s.transcript = append(s.transcript, Message{Role: RoleUser, Content: question, At: time.Now()})
	s.state = StateAnswering
	s.mu.Unlock()

	var answered *Message
	defer func() { s.endAnswer(engine, gen, answered) }()

	start := time.Now()
	var answer strings.Builder
	var streamErr error
	first := true
	for frag, err := range engine.Query(ctx, question) {
		if err != nil {
			streamErr = err
			break
		}
		if err := ctx.Err(); err != nil {
			streamErr = err
			break
		}
		if frag == "" {
			continue
		}
		if first {
			s.deps.Metrics.ObserveFirstFragment(time.Since(start))
			first = false
		}
		answer.WriteString(frag)
		if onFragment != nil {
			onFragment(frag)
		}
	}

	msg := Message{Role: RoleAssistant, Content: answer.String(), At: time.Now()}
	if streamErr != nil {
		msg.Incomplete = true
		msg.Error = streamErr.Error()
	}

	answered = &msg

	status := metrics.StatusSuccess
	switch {
	case streamErr == nil:
	case errors.Is(streamErr, context.Canceled), errors.Is(streamErr, context.DeadlineExceeded):
		status = metrics.StatusCancelled
	default:
		status = metrics.StatusError
	}
	s.deps.Metrics.ObserveQuestion(status, time.Since(start))

	if streamErr != nil {
		s.log.Warn(module, "answer interrupted", map[string]interface{}{
			"session_id":    s.id,
			"partial_chars": len(msg.Content),
			"error":         streamErr.Error(),
		})
		return msg, &AnswerError{Err: streamErr, Partial: msg.Content}
	}
	s.log.Debug(module, "answer complete", map[string]interface{}{
		"session_id": s.id,
		"chars":      len(msg.Content),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return msg, nil
}

// endAnswer records the assistant message, if any, and leaves ANSWERING. It
// also runs when the stream or the fragment callback panics. An engine dropped
// by Reset or Upload while answering is released here.
func (s *Session) endAnswer(engine domain.Engine, gen uint64, msg *Message) {
	current := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if msg != nil {
			s.transcript = append(s.transcript, *msg)
		}
		if s.gen != gen {
			return false
		}
		s.state = StateReady
		return true
	}()
	if !current {
		s.release(engine)
	}
}

// Reset drops the current document and returns to EMPTY. An engine that is
// still answering is released by Ask once the answer finishes. Reset is a
// no-op when no document is loaded.
func (s *Session) Reset() {
	s.mu.Lock()
	engine, state := s.engine, s.state
	if engine == nil {
		s.mu.Unlock()
		return
	}
	s.engine = nil
	s.gen++
	s.state = StateEmpty
	s.document = ""
	s.summary = ""
	s.mu.Unlock()

	if state != StateAnswering {
		s.release(engine)
	}
	s.log.Info(module, "document reset", map[string]interface{}{"session_id": s.id})
}

// ClearChat empties the transcript and leaves the document alone.
func (s *Session) ClearChat() {
	s.mu.Lock()
	s.transcript = nil
	s.mu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		Document:   s.document,
		Summary:    s.summary,
		Transcript: append([]Message{}, s.transcript...),
	}
	if s.deps.ConfigErr != nil {
		snap.ConfigWarning = s.deps.ConfigErr.Error()
	}
	return snap
}

// Close ends the session and releases its document.
func (s *Session) Close() {
	s.Reset()
	s.log.Debug(module, "session closed", map[string]interface{}{"session_id": s.id})
}

func (s *Session) release(engine domain.Engine) {
	if err := engine.Close(); err != nil {
		s.log.Warn(module, "engine release failed", map[string]interface{}{"session_id": s.id, "error": err.Error()})
	}
	s.deps.Metrics.DocumentReleased()
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}
