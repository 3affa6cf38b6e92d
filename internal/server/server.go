// Package server serves the chat page and its JSON/SSE API.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pdfmind/internal/logger"
	"pdfmind/internal/session"
)

const (
	module            = "server"
	sessionCookie     = "pdfmind_session"
	sessionContextKey = "pdfmind.session"
)

//go:embed web/index.html
var webFS embed.FS

type Options struct {
	Addr           string
	MaxUploadBytes int64
	// SessionTTL sets the cookie lifetime; it should match the registry TTL.
	SessionTTL time.Duration
	Gatherer   prometheus.Gatherer
	Logger     logger.ILogger
}

type Server struct {
	registry *session.Registry
	opts     Options
	log      logger.ILogger
	router   *gin.Engine
}

func New(registry *session.Registry, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{registry: registry, opts: opts, log: log}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	r.SetHTMLTemplate(template.Must(template.ParseFS(webFS, "web/index.html")))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	ui := r.Group("/", s.withSession())
	ui.GET("/", s.handleIndex)

	api := r.Group("/api", s.withSession())
	api.GET("/session", s.handleSnapshot)
	api.POST("/document", s.handleUpload)
	api.POST("/document/reset", s.handleReset)
	api.POST("/ask", s.handleAsk)
	api.POST("/chat/clear", s.handleClearChat)
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info(module, "listening", map[string]interface{}{"addr": s.opts.Addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info(module, "shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	}
}

// withSession resolves the caller's session from its cookie, creating one
// when the cookie is missing or stale.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(sessionCookie)
		sess := s.registry.Get(id)
		if sess.ID() != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sess.ID(), int(s.opts.SessionTTL.Seconds()), "/", "", false, true)
		}
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionContextKey).(*session.Session)
}

func requestLogger(log logger.ILogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug(module, "request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
}
