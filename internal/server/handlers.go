package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfmind/internal/session"
)

var stageMessages = map[session.Stage]string{
	session.StageWorkspace: "Creating temporary workspace...",
	session.StageReading:   "Reading document...",
	session.StageEmbedding: "Indexing document...",
	session.StageReady:     "Document ready",
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Session": sessionFrom(c).Snapshot()})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFrom(c).Snapshot())
}

func (s *Server) handleClearChat(c *gin.Context) {
	sess := sessionFrom(c)
	sess.ClearChat()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleReset(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Reset()
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleUpload(c *gin.Context) {
	sess := sessionFrom(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large", "kind": kindBadRequest})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field", "kind": kindBadRequest})
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files are supported", "kind": kindBadRequest})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kindBadRequest})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": kindBadRequest})
		return
	}

	setSSEHeaders(c.Writer)
	w, err := newSSEWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)

	progress := session.WithProgress(func(st session.Stage) {
		_ = w.writeStatus(string(st), stageMessages[st])
	})
	if err := sess.Upload(c.Request.Context(), fh.Filename, data, progress); err != nil {
		_ = w.writeError(kindDocument, err.Error())
		return
	}
	snap := sess.Snapshot()
	_ = w.writeEvent(streamEvent{Type: eventReady, Document: snap.Document, Summary: snap.Summary})
}

func (s *Server) handleAsk(c *gin.Context) {
	sess := sessionFrom(c)
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required", "kind": kindBadRequest})
		return
	}

	setSSEHeaders(c.Writer)
	w, err := newSSEWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusOK)

	msg, err := sess.Ask(c.Request.Context(), req.Question, func(frag string) {
		_ = w.writeToken(frag)
	})
	if err != nil {
		_ = w.writeEvent(streamEvent{Type: eventError, Kind: errorKind(err), Error: err.Error(), Incomplete: msg.Incomplete})
		return
	}
	_ = w.writeEvent(streamEvent{Type: eventDone, Content: msg.Content})
}

func errorKind(err error) string {
	var (
		notReady *session.NotReadyError
		config   *session.ConfigurationError
		answer   *session.AnswerError
	)
	switch {
	case errors.As(err, &notReady):
		return kindNotReady
	case errors.As(err, &config):
		return kindConfiguration
	case errors.As(err, &answer):
		return kindAnswer
	case errors.Is(err, session.ErrEmptyQuestion):
		return kindBadRequest
	}
	return kindAnswer
}
