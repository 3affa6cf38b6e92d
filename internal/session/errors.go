package session

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestion is returned by Ask for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrEmptyFile is wrapped in a DocumentLoadError for zero-byte uploads.
	ErrEmptyFile = errors.New("uploaded file is empty")
	// ErrNoContent is wrapped in a DocumentLoadError when the loader finds nothing.
	ErrNoContent = errors.New("no readable content in document")
)

// ConfigurationError reports a missing credential. It blocks questions but
// not page load or uploads.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DocumentLoadError reports a failed upload. The session is back in EMPTY.
type DocumentLoadError struct {
	Stage    Stage
	FileName string
	Err      error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("could not load %q (%s): %v", e.FileName, e.Stage, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// NotReadyError is returned by Ask when no document is ready to query.
type NotReadyError struct {
	State State
}

func (e *NotReadyError) Error() string {
	switch e.State {
	case StateIndexing:
		return "the document is still being indexed"
	case StateAnswering:
		return "a question is already being answered"
	default:
		return "upload a document before asking questions"
	}
}

// AnswerError reports a failed or cancelled answer. Partial holds whatever
// was streamed before the failure; it is also kept in the transcript.
type AnswerError struct {
	Err     error
	Partial string
}

func (e *AnswerError) Error() string {
	return "answer failed: " + e.Err.Error()
}

func (e *AnswerError) Unwrap() error { return e.Err }
