package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event types written to the browser.
const (
	eventStatus = "status"
	eventReady  = "ready"
	eventToken  = "token"
	eventDone   = "done"
	eventError  = "error"
)

// Error kinds carried by error events.
const (
	kindNotReady      = "not_ready"
	kindConfiguration = "configuration"
	kindAnswer        = "answer"
	kindDocument      = "document"
	kindBadRequest    = "bad_request"
)

type streamEvent struct {
	Type       string `json:"type"`
	Stage      string `json:"stage,omitempty"`
	Message    string `json:"message,omitempty"`
	Content    string `json:"content,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Error      string `json:"error,omitempty"`
	Document   string `json:"document,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Incomplete bool   `json:"incomplete,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// sseWriter writes Server-Sent Events and flushes after each one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) writeEvent(ev streamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.CreatedAt = time.Now().UnixMilli()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeStatus(stage, message string) error {
	return s.writeEvent(streamEvent{Type: eventStatus, Stage: stage, Message: message})
}

func (s *sseWriter) writeToken(content string) error {
	return s.writeEvent(streamEvent{Type: eventToken, Content: content})
}

func (s *sseWriter) writeError(kind, message string) error {
	return s.writeEvent(streamEvent{Type: eventError, Kind: kind, Error: message})
}
