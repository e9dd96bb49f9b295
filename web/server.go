// Package web serves the browser front end: an upload form, live progress
// over server-sent events and the transcript download.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	cfg "github.com/maastricht-university/scribe/config"
	"github.com/maastricht-university/scribe/metrics"
	"github.com/maastricht-university/scribe/orchestrator"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Runner executes one transcription request.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request, progress orchestrator.ProgressFunc) orchestrator.Result
}

// HealthChecker reports whether the model sidecar is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Server struct {
	cfg       *cfg.Root
	runner    Runner
	health    HealthChecker
	jobs      *jobTable
	router    *gin.Engine
	keepalive time.Duration
}

// New wires the routes. health may be nil.
func New(c *cfg.Root, runner Runner, health HealthChecker) *Server {
	s := &Server{
		cfg:       c,
		runner:    runner,
		health:    health,
		jobs:      newJobTable(c.Server.JobRetention),
		keepalive: 15 * time.Second,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(), metrics.Instrument())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	r.MaxMultipartMemory = 32 << 20

	r.GET("/", s.index)
	r.GET("/health", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/transcribe", s.submit)
	api.GET("/jobs/:id/events", s.events)
	api.GET("/jobs/:id/download", s.download)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully. Write
// timeouts stay unset so event streams can outlive long transcriptions.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("web server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down web server")
	return srv.Shutdown(shutdownCtx)
}
